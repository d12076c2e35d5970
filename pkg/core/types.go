package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RealtimeQuote 盘中估值快照(fundgz 接口)
type RealtimeQuote struct {
	Code                  string          `json:"code"`                    // 基金代码
	Name                  string          `json:"name"`                    // 基金名称
	NavDate               string          `json:"nav_date,omitempty"`      // 官方净值日期 jzrq
	EstimateTime          string          `json:"estimate_time,omitempty"` // 估值时间 gztime
	OfficialNav           decimal.Decimal `json:"official_nav"`            // 单位净值 dwjz
	EstimateNav           decimal.Decimal `json:"estimate_nav"`            // 估算净值 gsz
	EstimateChangePercent decimal.Decimal `json:"estimate_change_percent"` // 估算涨幅(%) gszzl
}

// HistoryPoint 历史净值走势上的一个交易日
type HistoryPoint struct {
	Date          time.Time           `json:"date"`                   // 自然日(中国时区零点)
	Nav           decimal.Decimal     `json:"nav"`                    // 单位净值
	CumulativeNav decimal.NullDecimal `json:"cumulative_nav"`         // 累计净值，缺失时为 null
	ReturnRate    decimal.NullDecimal `json:"return_rate"`            // 日增长率 equityReturn
	Distribution  string              `json:"distribution,omitempty"` // 分红送配说明 unitMoney
}

// DateKey 返回 YYYY-MM-DD
func (p HistoryPoint) DateKey() string {
	return p.Date.Format("2006-01-02")
}

// HistorySeries 按日期升序排列的净值序列
type HistorySeries struct {
	Code   string         `json:"code"`
	Points []HistoryPoint `json:"points"`
}

// Latest 返回最后一个点，序列为空时 ok 为 false
func (s *HistorySeries) Latest() (HistoryPoint, bool) {
	if s == nil || len(s.Points) == 0 {
		return HistoryPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Between 返回 [from, to] 闭区间内的点，零值表示不限
func (s *HistorySeries) Between(from, to time.Time) []HistoryPoint {
	var out []HistoryPoint
	for _, p := range s.Points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FundListEntry 基金列表条目
type FundListEntry struct {
	Code         string `json:"code"`
	Abbreviation string `json:"abbreviation"` // 拼音缩写
	Name         string `json:"name"`
	Type         string `json:"type"`   // 混合型、债券型...
	Pinyin       string `json:"pinyin"` // 全拼
}

// FundList 全量基金列表，代码唯一且保持首次出现的顺序
type FundList struct {
	Entries   []FundListEntry `json:"entries"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Find 按代码查找
func (l *FundList) Find(code string) (FundListEntry, bool) {
	if l == nil {
		return FundListEntry{}, false
	}
	for _, e := range l.Entries {
		if e.Code == code {
			return e, true
		}
	}
	return FundListEntry{}, false
}

// FilterByType 按基金类型过滤
func (l *FundList) FilterByType(fundType string) []FundListEntry {
	var out []FundListEntry
	for _, e := range l.Entries {
		if e.Type == fundType {
			out = append(out, e)
		}
	}
	return out
}

// Search 按代码前缀、拼音缩写或名称模糊匹配，不区分大小写
func Search(entries []FundListEntry, q string) []FundListEntry {
	q = strings.ToUpper(strings.TrimSpace(q))
	if q == "" {
		return entries
	}
	var out []FundListEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Code, q) ||
			strings.Contains(strings.ToUpper(e.Abbreviation), q) ||
			strings.Contains(strings.ToUpper(e.Pinyin), q) ||
			strings.Contains(strings.ToUpper(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}

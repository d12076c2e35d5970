package timing

import (
	"time"
)

// MarketTime 提供基金估值时段检测功能
//
// 盘中估值只在 A 股交易时段更新：09:30-11:30, 13:00-15:00(中国时区)。
type MarketTime struct {
	timeService TimeService
}

// NewMarketTime 创建新的市场时间检测器
func NewMarketTime(timeService TimeService) *MarketTime {
	return &MarketTime{
		timeService: timeService,
	}
}

// DefaultMarketTime 使用系统时间的默认市场时间检测器
func DefaultMarketTime() *MarketTime {
	return NewMarketTime(&SystemTimeService{})
}

// Now 返回当前时间(中国时区)
func (m *MarketTime) Now() time.Time {
	return m.timeService.Now().In(ChinaLocation)
}

// IsEstimateWindow 判断当前是否在盘中估值时段
func (m *MarketTime) IsEstimateWindow() bool {
	now := m.Now()

	if !m.IsTradingDay(now) {
		return false
	}

	currentTime := now.Format("15:04:05")
	return (currentTime >= "09:30:00" && currentTime <= "11:30:00") ||
		(currentTime >= "13:00:00" && currentTime <= "15:00:00")
}

// IsTradingDay 判断是否是交易日（周一到周五，不含节假日）
func (m *MarketTime) IsTradingDay(t time.Time) bool {
	weekday := t.In(ChinaLocation).Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// IsAfterClose 判断是否已收盘，收盘后官方净值陆续公布
func (m *MarketTime) IsAfterClose() bool {
	now := m.Now()
	if !m.IsTradingDay(now) {
		return false
	}
	return now.Format("15:04:05") > "15:00:00"
}

// NextEstimateStart 获取下一个估值时段的开始时间
func (m *MarketTime) NextEstimateStart() time.Time {
	now := m.Now()
	todayMorning := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, ChinaLocation)

	if !m.IsTradingDay(now) {
		daysUntilNext := 1
		if now.Weekday() == time.Saturday {
			daysUntilNext = 2
		}
		return todayMorning.AddDate(0, 0, daysUntilNext)
	}

	currentTime := now.Format("15:04:05")
	switch {
	case currentTime < "09:30:00":
		return todayMorning
	case currentTime > "11:30:00" && currentTime < "13:00:00":
		return time.Date(now.Year(), now.Month(), now.Day(), 13, 0, 0, 0, ChinaLocation)
	case currentTime > "15:00:00":
		if now.Weekday() == time.Friday {
			return todayMorning.AddDate(0, 0, 3)
		}
		return todayMorning.AddDate(0, 0, 1)
	default:
		return now
	}
}

// Package storage 提供基金数据的落地实现：SQLite、InfluxDB、Redis Stream 和内存。
package storage

import (
	"context"
	"sort"
	"sync"

	"fundsub/pkg/core"
)

// MemorySink 完全在内存中实现的 Sink，用于测试和不落库的场景，进程退出后数据丢失。
type MemorySink struct {
	mu      sync.RWMutex
	quotes  map[string]map[string]*core.RealtimeQuote // code -> estimate_time -> quote
	history map[string]map[string]core.HistoryPoint   // code -> date -> point
	list    *core.FundList
}

// NewMemorySink 创建内存 Sink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		quotes:  make(map[string]map[string]*core.RealtimeQuote),
		history: make(map[string]map[string]core.HistoryPoint),
	}
}

func (m *MemorySink) SaveQuote(ctx context.Context, q *core.RealtimeQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byTime, ok := m.quotes[q.Code]
	if !ok {
		byTime = make(map[string]*core.RealtimeQuote)
		m.quotes[q.Code] = byTime
	}
	cp := *q
	byTime[q.EstimateTime] = &cp
	return nil
}

func (m *MemorySink) SaveHistory(ctx context.Context, series *core.HistorySeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate, ok := m.history[series.Code]
	if !ok {
		byDate = make(map[string]core.HistoryPoint)
		m.history[series.Code] = byDate
	}
	for _, p := range series.Points {
		byDate[p.DateKey()] = p
	}
	return nil
}

func (m *MemorySink) ReplaceFundList(ctx context.Context, list *core.FundList) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := &core.FundList{FetchedAt: list.FetchedAt, Entries: append([]core.FundListEntry(nil), list.Entries...)}
	m.list = cp
	return nil
}

func (m *MemorySink) LoadHistory(ctx context.Context, code string) (*core.HistorySeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := &core.HistorySeries{Code: code}
	for _, p := range m.history[code] {
		series.Points = append(series.Points, p)
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})
	return series, nil
}

func (m *MemorySink) LoadFundList(ctx context.Context) (*core.FundList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.list == nil {
		return &core.FundList{}, nil
	}
	return &core.FundList{FetchedAt: m.list.FetchedAt, Entries: append([]core.FundListEntry(nil), m.list.Entries...)}, nil
}

func (m *MemorySink) LatestQuote(ctx context.Context, code string) (*core.RealtimeQuote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *core.RealtimeQuote
	for t, q := range m.quotes[code] {
		if latest == nil || t > latest.EstimateTime {
			latest = q
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// QuoteCount 已保存的估值条数
func (m *MemorySink) QuoteCount(code string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quotes[code])
}

func (m *MemorySink) Close() error { return nil }

var (
	_ Sink   = (*MemorySink)(nil)
	_ Reader = (*MemorySink)(nil)
)

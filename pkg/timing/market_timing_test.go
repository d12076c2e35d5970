package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func parseCST(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04:05", s, ChinaLocation)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return v
}

func TestMarketTime_EstimateWindow(t *testing.T) {
	tests := []struct {
		name     string
		mockTime string
		expected bool
	}{
		{"开盘前-09:29:59", "2025-08-21 09:29:59", false},
		{"开盘-09:30:00", "2025-08-21 09:30:00", true},
		{"上午-10:00:00", "2025-08-21 10:00:00", true},
		{"上午收盘-11:30:00", "2025-08-21 11:30:00", true},
		{"午休-12:00:00", "2025-08-21 12:00:00", false},
		{"下午开盘-13:00:00", "2025-08-21 13:00:00", true},
		{"收盘-15:00:00", "2025-08-21 15:00:00", true},
		{"收盘后-15:00:01", "2025-08-21 15:00:01", false},
		{"周六", "2025-08-23 10:00:00", false},
		{"周日", "2025-08-24 10:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := NewMarketTime(NewFixedTimeService(parseCST(t, tt.mockTime)))
			assert.Equal(t, tt.expected, mt.IsEstimateWindow())
		})
	}
}

func TestMarketTime_EstimateWindowUsesChinaZone(t *testing.T) {
	// 02:00 UTC 即北京时间 10:00
	utc := time.Date(2025, 8, 21, 2, 0, 0, 0, time.UTC)
	mt := NewMarketTime(NewFixedTimeService(utc))
	assert.True(t, mt.IsEstimateWindow())
}

func TestMarketTime_AfterClose(t *testing.T) {
	assert.False(t, NewMarketTime(NewFixedTimeService(parseCST(t, "2025-08-21 15:00:00"))).IsAfterClose())
	assert.True(t, NewMarketTime(NewFixedTimeService(parseCST(t, "2025-08-21 20:00:00"))).IsAfterClose())
	assert.False(t, NewMarketTime(NewFixedTimeService(parseCST(t, "2025-08-23 20:00:00"))).IsAfterClose())
}

func TestMarketTime_NextEstimateStart(t *testing.T) {
	tests := []struct {
		name     string
		mockTime string
		expected string
	}{
		{"工作日早上", "2025-08-21 08:00:00", "2025-08-21 09:30:00"},
		{"午休", "2025-08-21 12:10:00", "2025-08-21 13:00:00"},
		{"盘中", "2025-08-21 10:00:00", "2025-08-21 10:00:00"},
		{"收盘后", "2025-08-21 16:00:00", "2025-08-22 09:30:00"},
		{"周五收盘后", "2025-08-22 16:00:00", "2025-08-25 09:30:00"},
		{"周六", "2025-08-23 10:00:00", "2025-08-25 09:30:00"},
		{"周日", "2025-08-24 10:00:00", "2025-08-25 09:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := NewMarketTime(NewFixedTimeService(parseCST(t, tt.mockTime)))
			assert.WithinDuration(t, parseCST(t, tt.expected), mt.NextEstimateStart(), time.Second)
		})
	}
}

func TestFixedTimeService(t *testing.T) {
	start := parseCST(t, "2025-08-21 10:00:00")
	clock := NewFixedTimeService(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}

func TestDayOf(t *testing.T) {
	// 1704124800000 = 2024-01-01T16:00:00Z = 2024-01-02 00:00 CST
	assert.Equal(t, "2024-01-02", DateKey(DayOf(1704124800000)))
	// 前一毫秒仍是 1 月 1 日
	assert.Equal(t, "2024-01-01", DateKey(DayOf(1704124799999)))
}

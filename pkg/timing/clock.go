package timing

import (
	"sync"
	"time"
)

// ChinaLocation 中国标准时间(UTC+8)，估值与净值日期都按此时区解释
var ChinaLocation = time.FixedZone("CST", 8*3600)

// TimeService 提供当前时间接口，用于mock测试
type TimeService interface {
	Now() time.Time
}

// SystemTimeService 使用系统实际时间
type SystemTimeService struct{}

func (s *SystemTimeService) Now() time.Time {
	return time.Now()
}

// FixedTimeService 可手动拨动的时钟，测试 TTL 和交易时段用
type FixedTimeService struct {
	mu      sync.Mutex
	current time.Time
}

// NewFixedTimeService 创建固定在 t 的时钟
func NewFixedTimeService(t time.Time) *FixedTimeService {
	return &FixedTimeService{current: t}
}

func (f *FixedTimeService) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Set 把时钟拨到 t
func (f *FixedTimeService) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}

// Advance 时钟前进 d
func (f *FixedTimeService) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.mu.Unlock()
}

// DayOf 把毫秒时间戳换算成中国时区的自然日(零点)
func DayOf(millis int64) time.Time {
	t := time.UnixMilli(millis).In(ChinaLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ChinaLocation)
}

// DateKey 返回 YYYY-MM-DD 形式的日期键
func DateKey(t time.Time) string {
	return t.In(ChinaLocation).Format("2006-01-02")
}

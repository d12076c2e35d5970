package cache

import (
	"context"
	"time"
)

// Cache 定义了缓存行为的接口。
// 内存实现与 Redis 实现都遵循此接口。
type Cache interface {
	// Get 从缓存中获取一个值，缺失或过期时返回 CACHE_MISS 错误。
	Get(ctx context.Context, key string) (interface{}, error)
	// Set 向缓存中设置一个值，覆盖已有条目并重新计时。
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete 从缓存中删除一个值。
	Delete(ctx context.Context, key string) error
	// Clear 清空所有缓存条目。
	Clear(ctx context.Context) error
	// Stats 获取缓存的统计信息。
	Stats() CacheStats
}

// CacheEntry 代表缓存中的一个条目。
type CacheEntry struct {
	Value     interface{}   // 缓存的值
	WrittenAt time.Time     // 写入时间
	TTL       time.Duration // 生存时间，<= 0 表示永不过期
}

// ValidAt 判断条目在 now 时刻是否仍然有效：now - writtenAt < ttl
func (e *CacheEntry) ValidAt(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.Sub(e.WrittenAt) < e.TTL
}

// CacheStats 包含了缓存的统计信息。
type CacheStats struct {
	Size      int64   `json:"size"`       // 当前缓存中的条目数(含已过期未覆盖的)
	HitCount  int64   `json:"hit_count"`  // 命中次数
	MissCount int64   `json:"miss_count"` // 未命中次数
	HitRate   float64 `json:"hit_rate"`   // 命中率
}

func newStats(size, hits, misses int64) CacheStats {
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{Size: size, HitCount: hits, MissCount: misses, HitRate: hitRate}
}

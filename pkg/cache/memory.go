package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"fundsub/pkg/timing"
)

// MemoryCache 线程安全的内存缓存实现
//
// 过期判断在读取时进行，过期条目只被报告为未命中，不会被删除，等待下次 Set 覆盖。
// 不限制容量。
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]*CacheEntry
	clock     timing.TimeService
	hitCount  int64
	missCount int64
}

// NewMemoryCache 创建新的内存缓存，clock 为 nil 时使用系统时间
func NewMemoryCache(clock timing.TimeService) *MemoryCache {
	if clock == nil {
		clock = &timing.SystemTimeService{}
	}
	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		clock:   clock,
	}
}

// Get 获取缓存值
func (mc *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	mc.mu.RLock()
	entry, exists := mc.entries[key]
	mc.mu.RUnlock()

	if !exists || !entry.ValidAt(mc.clock.Now()) {
		atomic.AddInt64(&mc.missCount, 1)
		return nil, newMiss(key)
	}

	atomic.AddInt64(&mc.hitCount, 1)
	return entry.Value, nil
}

// Set 设置缓存值，同键并发写入以最后一次为准
func (mc *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	entry := &CacheEntry{
		Value:     value,
		WrittenAt: mc.clock.Now(),
		TTL:       ttl,
	}

	mc.mu.Lock()
	mc.entries[key] = entry
	mc.mu.Unlock()
	return nil
}

// Delete 删除缓存值
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.entries, key)
	return nil
}

// Clear 清空缓存
func (mc *MemoryCache) Clear(ctx context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries = make(map[string]*CacheEntry)
	atomic.StoreInt64(&mc.hitCount, 0)
	atomic.StoreInt64(&mc.missCount, 0)
	return nil
}

// Stats 获取缓存统计信息
func (mc *MemoryCache) Stats() CacheStats {
	mc.mu.RLock()
	size := int64(len(mc.entries))
	mc.mu.RUnlock()

	return newStats(size, atomic.LoadInt64(&mc.hitCount), atomic.LoadInt64(&mc.missCount))
}

var _ Cache = (*MemoryCache)(nil)

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundsub/pkg/core"
	"fundsub/pkg/timing"
)

func TestMemoryCache_TTLBoundary(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 8, 21, 10, 0, 0, 0, timing.ChinaLocation)
	clock := timing.NewFixedTimeService(start)
	mc := NewMemoryCache(clock)

	ttl := 300 * time.Second
	require.NoError(t, mc.Set(ctx, "realtime:001186", "v1", ttl))

	clock.Set(start.Add(ttl - time.Nanosecond))
	v, err := mc.Get(ctx, "realtime:001186")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	clock.Set(start.Add(ttl))
	_, err = mc.Get(ctx, "realtime:001186")
	assert.True(t, IsMiss(err), "now - writtenAt == ttl 已过期")

	clock.Set(start.Add(ttl + time.Nanosecond))
	_, err = mc.Get(ctx, "realtime:001186")
	assert.True(t, IsMiss(err))

	// 过期条目不会被删除，只是不可见
	assert.Equal(t, int64(1), mc.Stats().Size)

	// 重新写入后重新计时
	require.NoError(t, mc.Set(ctx, "realtime:001186", "v2", ttl))
	v, err = mc.Get(ctx, "realtime:001186")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestMemoryCache_PerKindTTL(t *testing.T) {
	ctx := context.Background()
	clock := timing.NewFixedTimeService(time.Unix(0, 0))
	mc := NewMemoryCache(clock)

	require.NoError(t, mc.Set(ctx, "realtime:001186", 1, 5*time.Minute))
	require.NoError(t, mc.Set(ctx, "fund_list", 2, time.Hour))

	clock.Advance(10 * time.Minute)

	_, err := mc.Get(ctx, "realtime:001186")
	assert.True(t, IsMiss(err))
	v, err := mc.Get(ctx, "fund_list")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMemoryCache_DeleteClearStats(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(nil)

	_, err := mc.Get(ctx, "a")
	assert.True(t, IsMiss(err))

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	_, err = mc.Get(ctx, "a")
	require.NoError(t, err)

	stats := mc.Stats()
	assert.Equal(t, int64(2), stats.Size)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)

	require.NoError(t, mc.Delete(ctx, "a"))
	_, err = mc.Get(ctx, "a")
	assert.True(t, IsMiss(err))

	require.NoError(t, mc.Clear(ctx))
	assert.Equal(t, CacheStats{}, mc.Stats())
}

func TestMemoryCache_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = mc.Set(ctx, "k", i, time.Minute)
			_, _ = mc.Get(ctx, "k")
		}(i)
	}
	wg.Wait()

	v, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.IsType(t, 0, v)
}

func TestGetAs(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(nil)

	quote := &core.RealtimeQuote{Code: "001186"}
	require.NoError(t, mc.Set(ctx, "realtime:001186", quote, time.Minute))

	got, err := GetAs[*core.RealtimeQuote](ctx, mc, "realtime:001186")
	require.NoError(t, err)
	assert.Same(t, quote, got)

	// JSON 字节(Redis 后端的形态)
	require.NoError(t, mc.Set(ctx, "raw", []byte(`{"code":"000001","official_nav":"1.5"}`), time.Minute))
	decoded, err := GetAs[*core.RealtimeQuote](ctx, mc, "raw")
	require.NoError(t, err)
	assert.Equal(t, "000001", decoded.Code)
	assert.Equal(t, "1.5", decoded.OfficialNav.String())

	// 类型不符视为未命中
	require.NoError(t, mc.Set(ctx, "wrong", 42, time.Minute))
	_, err = GetAs[*core.RealtimeQuote](ctx, mc, "wrong")
	assert.True(t, IsMiss(err))
}

package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"

	"fundsub/pkg/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache 基于 Redis 的缓存实现
//
// 值以 JSON 存储，Get 返回 []byte，由调用方用 GetAs 解码成具体类型。过期交给 Redis 的 PX。
type RedisCache struct {
	client    redis.UniversalClient
	prefix    string
	hitCount  int64
	missCount int64
}

// NewRedisCache 创建 Redis 缓存，所有键都带 prefix
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (rc *RedisCache) key(k string) string {
	return rc.prefix + k
}

// Get 获取原始 JSON
func (rc *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	data, err := rc.client.Get(ctx, rc.key(key)).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&rc.missCount, 1)
		return nil, newMiss(key)
	}
	if err != nil {
		atomic.AddInt64(&rc.missCount, 1)
		return nil, apperr.Wrap(apperr.ErrCacheMiss, "redis get failed", err).WithContext("key", key)
	}

	atomic.AddInt64(&rc.hitCount, 1)
	return data, nil
}

// Set 序列化为 JSON 后写入
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorageIO, "cache value marshal failed", err).WithContext("key", key)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := rc.client.Set(ctx, rc.key(key), data, ttl).Err(); err != nil {
		return apperr.Wrap(apperr.ErrStorageIO, "redis set failed", err).WithContext("key", key)
	}
	return nil
}

// Delete 删除键
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, rc.key(key)).Err(); err != nil {
		return apperr.Wrap(apperr.ErrStorageIO, "redis del failed", err).WithContext("key", key)
	}
	return nil
}

// Clear 按前缀 SCAN 删除
func (rc *RedisCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return apperr.Wrap(apperr.ErrStorageIO, "redis scan failed", err)
	}
	if len(keys) > 0 {
		if err := rc.client.Del(ctx, keys...).Err(); err != nil {
			return apperr.Wrap(apperr.ErrStorageIO, "redis del failed", err)
		}
	}
	atomic.StoreInt64(&rc.hitCount, 0)
	atomic.StoreInt64(&rc.missCount, 0)
	return nil
}

// Stats 只统计本进程的命中情况，Size 不做远程查询
func (rc *RedisCache) Stats() CacheStats {
	return newStats(0, atomic.LoadInt64(&rc.hitCount), atomic.LoadInt64(&rc.missCount))
}

var _ Cache = (*RedisCache)(nil)

package cache

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"fundsub/pkg/apperr"
	"fundsub/pkg/config"
	"fundsub/pkg/timing"
)

// Open 按配置创建缓存：memory(默认) 或 redis。
func Open(cfg config.CacheConfig, clock timing.TimeService) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(clock), nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, apperr.New(apperr.ErrConfigInvalid, "cache.redis.addr is required for redis backend")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisCache(client, cfg.Redis.KeyPrefix), nil
	default:
		return nil, apperr.New(apperr.ErrConfigInvalid, fmt.Sprintf("unknown cache backend %q", cfg.Backend))
	}
}

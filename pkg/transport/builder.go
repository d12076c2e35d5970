package transport

import (
	"fundsub/pkg/config"
)

// New 按配置组装：熔断(重试(限流(HTTP)))
//
// 限流放在重试内侧，每次尝试都要拿令牌；熔断在最外层，按逻辑请求计数。
func New(cfg config.ProviderConfig) Fetcher {
	var f Fetcher = NewHTTPFetcher(cfg.Timeout, cfg.UserAgent, cfg.Referer)
	if cfg.RateLimit > 0 {
		f = NewRateLimited(f, cfg.RateLimit, cfg.Burst)
	}
	f = NewRetrier(f, cfg.Retries, cfg.BaseBackoff)
	if cfg.Breaker.Enabled {
		f = NewCircuitBreaker("eastmoney", f, cfg.Breaker)
	}
	return f
}

package transport

import (
	"context"

	"golang.org/x/time/rate"

	"fundsub/pkg/apperr"
)

// RateLimited 令牌桶限流装饰器，所有请求共享一个桶
type RateLimited struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewRateLimited rps 为每秒请求数，burst < 1 时按 1 处理
func NewRateLimited(next Fetcher, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Fetch 等到令牌后转发
func (r *RateLimited) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.ErrTransport, "rate limiter wait failed", err).WithContext("url", url)
	}
	return r.next.Fetch(ctx, url)
}

package transport

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	"fundsub/pkg/apperr"
	"fundsub/pkg/config"
	"fundsub/pkg/logger"
)

// CircuitBreaker 熔断装饰器，连续失败达到阈值后短路请求
type CircuitBreaker struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker
}

// NewCircuitBreaker 使用 sony/gobreaker 包装 next
func NewCircuitBreaker(name string, next Fetcher, cfg config.BreakerConfig) *CircuitBreaker {
	log := logger.WithComponent("CircuitBreaker")
	threshold := cfg.ReadyToTrip
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("熔断器 %s 状态从 %v 变更为 %v", name, from, to)
		},
	}

	return &CircuitBreaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Fetch 通过熔断器执行请求，熔断打开时返回 TRANSPORT 错误
func (c *CircuitBreaker) Fetch(ctx context.Context, url string) ([]byte, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Fetch(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Wrap(apperr.ErrTransport, "circuit breaker rejected request", err).WithContext("url", url)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// State 当前熔断状态
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

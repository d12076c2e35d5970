package transport

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fundsub/pkg/apperr"
	"fundsub/pkg/logger"
)

// Retrier 有界重试：最多 attempts 次，两次之间按 base*2^n 指数退避
type Retrier struct {
	next     Fetcher
	attempts int
	base     time.Duration
	log      *logrus.Entry
}

// NewRetrier 包装 next，attempts < 1 时按 1 处理
func NewRetrier(next Fetcher, attempts int, base time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{
		next:     next,
		attempts: attempts,
		base:     base,
		log:      logger.WithComponent("Retrier"),
	}
}

// Fetch 依次尝试，全部失败后返回携带最后一次原因的 TRANSPORT 错误
func (r *Retrier) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, r.backoff(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		body, err := r.next.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		r.log.WithError(err).Debugf("attempt %d/%d failed: %s", attempt+1, r.attempts, url)

		if ctx.Err() != nil {
			break
		}
	}

	r.log.WithError(lastErr).Warnf("giving up after %d attempts: %s", r.attempts, url)
	return nil, apperr.Wrap(apperr.ErrTransport, "fetch failed", lastErr).
		WithContext("url", url).
		WithContext("attempts", r.attempts)
}

// backoff 第 n 次失败后的等待时长
func (r *Retrier) backoff(n int) time.Duration {
	return r.base * time.Duration(1<<uint(n))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

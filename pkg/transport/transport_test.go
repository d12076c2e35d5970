package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/encoding/simplifiedchinese"

	"fundsub/pkg/apperr"
	"fundsub/pkg/config"
	"fundsub/pkg/transport"
	"fundsub/pkg/transport/mocks"
)

func TestRetrier_SucceedsOnLastAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockFetcher(ctrl)

	const retries = 3
	gomock.InOrder(
		m.EXPECT().Fetch(gomock.Any(), "http://x/1.js").Return(nil, errors.New("boom")).Times(retries-1),
		m.EXPECT().Fetch(gomock.Any(), "http://x/1.js").Return([]byte("ok"), nil).Times(1),
	)

	r := transport.NewRetrier(m, retries, time.Millisecond)
	body, err := r.Fetch(context.Background(), "http://x/1.js")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockFetcher(ctrl)

	cause := errors.New("connection reset")
	m.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, cause).Times(3)

	r := transport.NewRetrier(m, 3, time.Millisecond)
	_, err := r.Fetch(context.Background(), "http://x/2.js")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.ErrTransport))
	assert.ErrorIs(t, err, cause)
}

func TestRetrier_BackoffIsExponential(t *testing.T) {
	var calls []time.Time
	f := transport.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls = append(calls, time.Now())
		return nil, errors.New("fail")
	})

	base := 20 * time.Millisecond
	r := transport.NewRetrier(f, 3, base)
	_, err := r.Fetch(context.Background(), "u")
	require.Error(t, err)
	require.Len(t, calls, 3)

	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), base)
	assert.GreaterOrEqual(t, calls[2].Sub(calls[1]), 2*base)
}

func TestRetrier_ContextCancelAbortsBackoff(t *testing.T) {
	var n int32
	f := transport.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		atomic.AddInt32(&n, 1)
		return nil, errors.New("fail")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := transport.NewRetrier(f, 5, time.Hour).Fetch(ctx, "u")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.ErrTransport))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&n))
}

func TestHTTPFetcher_HeadersAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.js":
			assert.Equal(t, "UA-test", r.Header.Get("User-Agent"))
			assert.Equal(t, "http://fund.eastmoney.com/", r.Header.Get("Referer"))
			_, _ = w.Write([]byte("jsonpgz({});"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := transport.NewHTTPFetcher(time.Second, "UA-test", "http://fund.eastmoney.com/")

	body, err := f.Fetch(context.Background(), srv.URL+"/ok.js")
	require.NoError(t, err)
	assert.Equal(t, "jsonpgz({});", string(body))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.js")
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestHTTPFetcher_DecodesGBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(`var r = [["000001","HXCZHH","华夏成长混合","混合型","HUAXIA"]];`))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=GBK")
		_, _ = w.Write(gbk)
	}))
	defer srv.Close()

	body, err := transport.NewHTTPFetcher(time.Second, "", "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "华夏成长混合")
}

func TestHTTPFetcher_PerAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := transport.NewHTTPFetcher(50*time.Millisecond, "", "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestNew_RetriesNon2xx(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := config.Default().Provider
	cfg.BaseBackoff = time.Millisecond
	cfg.RateLimit = 1000
	cfg.Breaker.Enabled = true

	body, err := transport.New(cfg).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	var n int32
	f := transport.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		atomic.AddInt32(&n, 1)
		return nil, errors.New("down")
	})

	cb := transport.NewCircuitBreaker("test", f, config.BreakerConfig{
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: 2,
	})

	for i := 0; i < 2; i++ {
		_, err := cb.Fetch(context.Background(), "u")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Fetch(context.Background(), "u")
	assert.True(t, apperr.HasCode(err, apperr.ErrTransport))
	assert.Equal(t, int32(2), atomic.LoadInt32(&n), "熔断打开后不应再调用下游")
}

func TestRateLimited_CancelledContext(t *testing.T) {
	f := transport.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return []byte("ok"), nil
	})
	rl := transport.NewRateLimited(f, 0.001, 1)

	_, err := rl.Fetch(context.Background(), "u")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rl.Fetch(ctx, "u")
	assert.True(t, apperr.HasCode(err, apperr.ErrTransport))
}

package transport

//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"fundsub/pkg/apperr"
)

// Fetcher 原始文本获取接口，一次调用对应一次逻辑请求
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc 函数适配器
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// StatusError 非 2xx 响应
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP status error: %d (%s)", e.StatusCode, e.URL)
}

// HTTPFetcher 单次 HTTP GET，不做重试
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	referer   string
}

// NewHTTPFetcher 创建 HTTP 获取器，timeout 作用于每一次请求
func NewHTTPFetcher(timeout time.Duration, userAgent, referer string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				MaxConnsPerHost:     10,
			},
		},
		timeout:   timeout,
		userAgent: userAgent,
		referer:   referer,
	}
}

// Fetch 发起请求并返回 UTF-8 文本
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return decodeCharset(resp.Header.Get("Content-Type"), body)
}

// decodeCharset 按 Content-Type 声明的字符集转成 UTF-8，未声明或无法识别时原样返回
func decodeCharset(contentType string, body []byte) ([]byte, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransport, "charset decode failed", err).WithContext("charset", charset)
	}
	return out, nil
}

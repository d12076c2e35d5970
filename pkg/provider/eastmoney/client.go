// Package eastmoney 天天基金(东方财富)基金数据客户端：盘中估值、历史净值与基金列表。
package eastmoney

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fundsub/pkg/apperr"
	"fundsub/pkg/batch"
	"fundsub/pkg/cache"
	"fundsub/pkg/config"
	"fundsub/pkg/core"
	"fundsub/pkg/logger"
	"fundsub/pkg/storage"
	"fundsub/pkg/timing"
	"fundsub/pkg/transport"
)

// 缓存键
const (
	keyRealtimePrefix = "realtime:"
	keyHistoryPrefix  = "history:"
	KeyFundList       = "fund_list"
)

// RealtimeKey 估值缓存键，例如 realtime:001186
func RealtimeKey(code string) string { return keyRealtimePrefix + code }

// HistoryKey 历史净值缓存键，例如 history:001186
func HistoryKey(code string) string { return keyHistoryPrefix + code }

// Client 基金数据客户端
//
// 每次获取的流程：(可选)查缓存 -> 请求 -> 提取 -> 转换 -> 写缓存 -> (可选)落库。
type Client struct {
	cfg     config.Config
	fetcher transport.Fetcher
	cache   cache.Cache
	sink    storage.Sink
	clock   timing.TimeService
	log     *logrus.Entry
}

// Option 客户端选项
type Option func(*Client)

// WithFetcher 替换底层请求器，默认按配置组装重试/熔断/限流链
func WithFetcher(f transport.Fetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// WithCache 替换缓存，默认使用内存缓存
func WithCache(ch cache.Cache) Option {
	return func(c *Client) { c.cache = ch }
}

// WithSink 设置落库目标
func WithSink(s storage.Sink) Option {
	return func(c *Client) { c.sink = s }
}

// WithTimeService 注入时钟
func WithTimeService(ts timing.TimeService) Option {
	return func(c *Client) { c.clock = ts }
}

// NewClient 创建客户端，cfg 为 nil 时使用默认配置
func NewClient(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Client{
		cfg:   *cfg,
		clock: &timing.SystemTimeService{},
		log:   logger.WithComponent("EastmoneyClient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = transport.New(c.cfg.Provider)
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryCache(c.clock)
	}
	return c
}

// Cache 返回客户端使用的缓存
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// FetchRealtime 获取单只基金的盘中估值
func (c *Client) FetchRealtime(ctx context.Context, code string) (*core.RealtimeQuote, error) {
	key := RealtimeKey(code)
	if c.cfg.Cache.ConsultRealtime {
		if q, err := cache.GetAs[*core.RealtimeQuote](ctx, c.cache, key); err == nil {
			return q, nil
		}
	}

	// rt 参数防止 CDN 返回旧估值
	url := fmt.Sprintf("%s/%s.js?rt=%d", strings.TrimRight(c.cfg.Provider.RealtimeBaseURL, "/"), code, c.clock.Now().UnixMilli())
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, withCode(err, code)
	}

	quote, err := parseRealtime(code, body)
	if err != nil {
		c.log.WithError(err).WithField("code", code).Debug("realtime parse failed")
		return nil, err
	}

	c.store(ctx, key, quote, c.cfg.Cache.RealtimeTTL)
	if c.sink != nil {
		if err := c.sink.SaveQuote(ctx, quote); err != nil {
			c.log.WithError(err).WithField("code", code).Warn("save quote failed")
		}
	}
	return quote, nil
}

// FetchHistory 获取单只基金的历史净值(单位净值+累计净值)
func (c *Client) FetchHistory(ctx context.Context, code string) (*core.HistorySeries, error) {
	key := HistoryKey(code)
	if c.cfg.Cache.ConsultHistory {
		if s, err := cache.GetAs[*core.HistorySeries](ctx, c.cache, key); err == nil {
			return s, nil
		}
	}

	url := fmt.Sprintf("%s/%s.js", strings.TrimRight(c.cfg.Provider.HistoryBaseURL, "/"), code)
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, withCode(err, code)
	}

	series, err := parseHistory(code, body)
	if err != nil {
		c.log.WithError(err).WithField("code", code).Debug("history parse failed")
		return nil, err
	}

	c.store(ctx, key, series, c.cfg.Cache.HistoryTTL)
	if c.sink != nil {
		if err := c.sink.SaveHistory(ctx, series); err != nil {
			c.log.WithError(err).WithField("code", code).Warn("save history failed")
		}
	}
	return series, nil
}

// FetchFundList 获取全量基金列表
func (c *Client) FetchFundList(ctx context.Context) (*core.FundList, error) {
	if c.cfg.Cache.ConsultFundList {
		if l, err := cache.GetAs[*core.FundList](ctx, c.cache, KeyFundList); err == nil {
			return l, nil
		}
	}

	body, err := c.fetch(ctx, c.cfg.Provider.FundListURL)
	if err != nil {
		return nil, err
	}

	entries, err := parseFundList(body)
	if err != nil {
		return nil, err
	}
	list := &core.FundList{Entries: entries, FetchedAt: c.clock.Now()}
	c.log.Infof("fund list fetched: %d entries", len(entries))

	c.store(ctx, KeyFundList, list, c.cfg.Cache.FundListTTL)
	if c.sink != nil {
		if err := c.sink.ReplaceFundList(ctx, list); err != nil {
			c.log.WithError(err).Warn("replace fund list failed")
		}
	}
	return list, nil
}

// BatchRealtime 并发获取多只基金的估值，失败的代码映射为 nil
func (c *Client) BatchRealtime(ctx context.Context, codes []string, limit int) map[string]*core.RealtimeQuote {
	if limit <= 0 {
		limit = c.cfg.Batch.RealtimeConcurrency
	}
	start := time.Now()
	out := batch.Dispatch[core.RealtimeQuote](ctx, codes, limit, c.FetchRealtime)
	c.log.Debugf("batch realtime: %d codes in %v", len(out), time.Since(start))
	return out
}

// BatchHistory 并发获取多只基金的历史净值，失败的代码映射为 nil
func (c *Client) BatchHistory(ctx context.Context, codes []string, limit int) map[string]*core.HistorySeries {
	if limit <= 0 {
		limit = c.cfg.Batch.HistoryConcurrency
	}
	start := time.Now()
	out := batch.Dispatch[core.HistorySeries](ctx, codes, limit, c.FetchHistory)
	c.log.Debugf("batch history: %d codes in %v", len(out), time.Since(start))
	return out
}

// fetch 统一把请求失败归为 TRANSPORT
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		if apperr.HasCode(err, apperr.ErrTransport) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ErrTransport, "fetch failed", err).WithContext("url", url)
	}
	return body, nil
}

// store 写缓存，失败只记录日志
func (c *Client) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

var _ core.FundService = (*Client)(nil)

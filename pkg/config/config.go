package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fundsub/pkg/apperr"
	"fundsub/pkg/logger"
)

// EnvPrefix 环境变量前缀，例如 FUNDSUB_PROVIDER_TIMEOUT
const EnvPrefix = "FUNDSUB"

// Config 主配置结构
type Config struct {
	// 数据源配置
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// 批量调度配置
	Batch BatchConfig `json:"batch" mapstructure:"batch"`

	// 缓存配置
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// 持久化配置
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// 日志配置
	Logger logger.Config `json:"logger" mapstructure:"logger"`

	// HTTP 查询服务配置
	Server ServerConfig `json:"server" mapstructure:"server"`
}

// ServerConfig HTTP 查询服务配置
type ServerConfig struct {
	Port           string        `json:"port" mapstructure:"port"`
	Mode           string        `json:"mode" mapstructure:"mode"` // debug, release, test
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}

// ProviderConfig 数据源(天天基金)配置
type ProviderConfig struct {
	RealtimeBaseURL string        `json:"realtime_base_url" mapstructure:"realtime_base_url"` // 实时估值地址前缀
	HistoryBaseURL  string        `json:"history_base_url" mapstructure:"history_base_url"`   // 历史净值地址前缀
	FundListURL     string        `json:"fund_list_url" mapstructure:"fund_list_url"`         // 基金列表地址
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`                     // 单次请求超时
	Retries         int           `json:"retries" mapstructure:"retries"`                     // 最大尝试次数
	BaseBackoff     time.Duration `json:"base_backoff" mapstructure:"base_backoff"`           // 退避基数
	UserAgent       string        `json:"user_agent" mapstructure:"user_agent"`
	Referer         string        `json:"referer" mapstructure:"referer"`
	RateLimit       float64       `json:"rate_limit" mapstructure:"rate_limit"` // 每秒请求数，0 表示不限
	Burst           int           `json:"burst" mapstructure:"burst"`
	Breaker         BreakerConfig `json:"breaker" mapstructure:"breaker"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	MaxRequests uint32        `json:"max_requests" mapstructure:"max_requests"` // 半开状态允许的请求数
	Interval    time.Duration `json:"interval" mapstructure:"interval"`         // 关闭状态计数清零周期
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`           // 打开状态持续时间
	ReadyToTrip uint32        `json:"ready_to_trip" mapstructure:"ready_to_trip"` // 连续失败多少次后打开
}

// BatchConfig 批量并发配置
type BatchConfig struct {
	RealtimeConcurrency int `json:"realtime_concurrency" mapstructure:"realtime_concurrency"`
	HistoryConcurrency  int `json:"history_concurrency" mapstructure:"history_concurrency"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Backend         string        `json:"backend" mapstructure:"backend"` // memory, redis
	RealtimeTTL     time.Duration `json:"realtime_ttl" mapstructure:"realtime_ttl"`
	HistoryTTL      time.Duration `json:"history_ttl" mapstructure:"history_ttl"`
	FundListTTL     time.Duration `json:"fund_list_ttl" mapstructure:"fund_list_ttl"`
	ConsultRealtime bool          `json:"consult_realtime" mapstructure:"consult_realtime"`
	ConsultHistory  bool          `json:"consult_history" mapstructure:"consult_history"`
	ConsultFundList bool          `json:"consult_fund_list" mapstructure:"consult_fund_list"`
	Redis           RedisConfig   `json:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr      string `json:"addr" mapstructure:"addr"`
	Password  string `json:"password" mapstructure:"password"`
	DB        int    `json:"db" mapstructure:"db"`
	KeyPrefix string `json:"key_prefix" mapstructure:"key_prefix"`
}

// StorageConfig 持久化配置
type StorageConfig struct {
	SQLitePath string       `json:"sqlite_path" mapstructure:"sqlite_path"` // 为空表示不落库
	Influx     InfluxConfig `json:"influx" mapstructure:"influx"`
	Stream     StreamConfig `json:"stream" mapstructure:"stream"`
}

// InfluxConfig InfluxDB 写入配置，URL 为空表示禁用
type InfluxConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Token  string `json:"token" mapstructure:"token"`
	Org    string `json:"org" mapstructure:"org"`
	Bucket string `json:"bucket" mapstructure:"bucket"`
}

// StreamConfig Redis Stream 发布配置
type StreamConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	MaxLen   int64  `json:"max_len" mapstructure:"max_len"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			RealtimeBaseURL: "https://fundgz.1234567.com.cn/js",
			HistoryBaseURL:  "http://fund.eastmoney.com/pingzhongdata",
			FundListURL:     "http://fund.eastmoney.com/js/fundcode_search.js",
			Timeout:         10 * time.Second,
			Retries:         3,
			BaseBackoff:     time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			Referer:         "http://fund.eastmoney.com/",
			Breaker: BreakerConfig{
				Enabled:     false,
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     30 * time.Second,
				ReadyToTrip: 5,
			},
		},
		Batch: BatchConfig{
			RealtimeConcurrency: 5,
			HistoryConcurrency:  3,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			RealtimeTTL:     5 * time.Minute,
			HistoryTTL:      5 * time.Minute,
			FundListTTL:     time.Hour,
			ConsultRealtime: true,
			ConsultHistory:  false,
			ConsultFundList: true,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "fundsub:",
			},
		},
		Storage: StorageConfig{
			SQLitePath: "fund_data.db",
			Influx: InfluxConfig{
				Org:    "fundsub",
				Bucket: "fund_data",
			},
			Stream: StreamConfig{
				Addr:   "localhost:6379",
				MaxLen: 10000,
			},
		},
		Logger: logger.Config{
			Level:      "info",
			Format:     "text",
			Output:     "console",
			Filename:   "fundsub.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Server: ServerConfig{
			Port:           "8080",
			Mode:           "release",
			RequestTimeout: 30 * time.Second,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	invalid := func(msg string) error {
		return apperr.New(apperr.ErrConfigInvalid, msg)
	}

	if c.Provider.RealtimeBaseURL == "" || c.Provider.HistoryBaseURL == "" || c.Provider.FundListURL == "" {
		return invalid("provider endpoint urls cannot be empty")
	}
	if c.Provider.Timeout <= 0 {
		return invalid("provider timeout must be positive")
	}
	if c.Provider.Retries < 1 {
		return invalid("provider retries must be at least 1")
	}
	if c.Provider.BaseBackoff < 0 {
		return invalid("provider base_backoff cannot be negative")
	}
	if c.Provider.RateLimit < 0 {
		return invalid("provider rate_limit cannot be negative")
	}
	if c.Batch.RealtimeConcurrency <= 0 || c.Batch.HistoryConcurrency <= 0 {
		return invalid("batch concurrency must be positive")
	}
	if c.Cache.RealtimeTTL <= 0 || c.Cache.HistoryTTL <= 0 || c.Cache.FundListTTL <= 0 {
		return invalid("cache ttl must be positive")
	}
	if c.Cache.FundListTTL <= c.Cache.RealtimeTTL {
		return invalid("cache fund_list_ttl must be greater than realtime_ttl")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return invalid("cache redis addr cannot be empty")
		}
	default:
		return invalid(fmt.Sprintf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Storage.Stream.Enabled && c.Storage.Stream.Addr == "" {
		return invalid("storage stream addr cannot be empty")
	}

	return nil
}

// SetProviderTimeout 设置单次请求超时
func (c *Config) SetProviderTimeout(timeout time.Duration) *Config {
	c.Provider.Timeout = timeout
	return c
}

// SetRetries 设置最大尝试次数
func (c *Config) SetRetries(retries int) *Config {
	c.Provider.Retries = retries
	return c
}

// SetConcurrency 设置实时与历史批量并发度
func (c *Config) SetConcurrency(realtime, history int) *Config {
	c.Batch.RealtimeConcurrency = realtime
	c.Batch.HistoryConcurrency = history
	return c
}

// SetSQLitePath 设置本地数据库路径
func (c *Config) SetSQLitePath(path string) *Config {
	c.Storage.SQLitePath = path
	return c
}

// SetLogLevel 设置日志级别
func (c *Config) SetLogLevel(level string) *Config {
	c.Logger.Level = level
	return c
}

// Load 读取配置：默认值 < 配置文件 < FUNDSUB_ 环境变量。path 为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	registerDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, apperr.Wrap(apperr.ErrConfigInvalid, "config file not found", err).WithContext("path", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperr.Wrap(apperr.ErrConfigInvalid, "read config failed", err).WithContext("path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperr.Wrap(apperr.ErrConfigInvalid, "decode config failed", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerDefaults 注册全部键的默认值，AutomaticEnv 只对已知键生效
func registerDefaults(v *viper.Viper, d *Config) {
	p := d.Provider
	v.SetDefault("provider.realtime_base_url", p.RealtimeBaseURL)
	v.SetDefault("provider.history_base_url", p.HistoryBaseURL)
	v.SetDefault("provider.fund_list_url", p.FundListURL)
	v.SetDefault("provider.timeout", p.Timeout)
	v.SetDefault("provider.retries", p.Retries)
	v.SetDefault("provider.base_backoff", p.BaseBackoff)
	v.SetDefault("provider.user_agent", p.UserAgent)
	v.SetDefault("provider.referer", p.Referer)
	v.SetDefault("provider.rate_limit", p.RateLimit)
	v.SetDefault("provider.burst", p.Burst)
	v.SetDefault("provider.breaker.enabled", p.Breaker.Enabled)
	v.SetDefault("provider.breaker.max_requests", p.Breaker.MaxRequests)
	v.SetDefault("provider.breaker.interval", p.Breaker.Interval)
	v.SetDefault("provider.breaker.timeout", p.Breaker.Timeout)
	v.SetDefault("provider.breaker.ready_to_trip", p.Breaker.ReadyToTrip)

	v.SetDefault("batch.realtime_concurrency", d.Batch.RealtimeConcurrency)
	v.SetDefault("batch.history_concurrency", d.Batch.HistoryConcurrency)

	c := d.Cache
	v.SetDefault("cache.backend", c.Backend)
	v.SetDefault("cache.realtime_ttl", c.RealtimeTTL)
	v.SetDefault("cache.history_ttl", c.HistoryTTL)
	v.SetDefault("cache.fund_list_ttl", c.FundListTTL)
	v.SetDefault("cache.consult_realtime", c.ConsultRealtime)
	v.SetDefault("cache.consult_history", c.ConsultHistory)
	v.SetDefault("cache.consult_fund_list", c.ConsultFundList)
	v.SetDefault("cache.redis.addr", c.Redis.Addr)
	v.SetDefault("cache.redis.password", c.Redis.Password)
	v.SetDefault("cache.redis.db", c.Redis.DB)
	v.SetDefault("cache.redis.key_prefix", c.Redis.KeyPrefix)

	s := d.Storage
	v.SetDefault("storage.sqlite_path", s.SQLitePath)
	v.SetDefault("storage.influx.url", s.Influx.URL)
	v.SetDefault("storage.influx.token", s.Influx.Token)
	v.SetDefault("storage.influx.org", s.Influx.Org)
	v.SetDefault("storage.influx.bucket", s.Influx.Bucket)
	v.SetDefault("storage.stream.enabled", s.Stream.Enabled)
	v.SetDefault("storage.stream.addr", s.Stream.Addr)
	v.SetDefault("storage.stream.password", s.Stream.Password)
	v.SetDefault("storage.stream.db", s.Stream.DB)
	v.SetDefault("storage.stream.max_len", s.Stream.MaxLen)

	l := d.Logger
	v.SetDefault("logger.level", l.Level)
	v.SetDefault("logger.format", l.Format)
	v.SetDefault("logger.output", l.Output)
	v.SetDefault("logger.filename", l.Filename)
	v.SetDefault("logger.max_size", l.MaxSize)
	v.SetDefault("logger.max_backups", l.MaxBackups)
	v.SetDefault("logger.max_age", l.MaxAge)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
}

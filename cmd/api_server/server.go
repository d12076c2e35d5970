package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fundsub/pkg/apperr"
	"fundsub/pkg/cache"
	"fundsub/pkg/chart"
	"fundsub/pkg/config"
	"fundsub/pkg/core"
	"fundsub/pkg/logger"
	"fundsub/pkg/storage"
	"fundsub/pkg/timing"
)

const dateLayout = "2006-01-02"

// APIServer 基金数据查询服务
type APIServer struct {
	service core.FundService
	store   storage.Reader
	cache   cache.Cache
	market  *timing.MarketTime
	cfg     config.ServerConfig
	logger  *logrus.Entry
	server  *http.Server
	started time.Time
}

// ServerOption 服务选项
type ServerOption func(*APIServer)

// WithStore 启用已落库数据的查询接口
func WithStore(r storage.Reader) ServerOption {
	return func(s *APIServer) { s.store = r }
}

// WithCacheStats 在 /stats 中输出缓存统计
func WithCacheStats(c cache.Cache) ServerOption {
	return func(s *APIServer) { s.cache = c }
}

// WithMarketTime 指定 /health 中估值时段判断所用的时钟
func WithMarketTime(m *timing.MarketTime) ServerOption {
	return func(s *APIServer) { s.market = m }
}

// HistoryResponse 历史净值响应
type HistoryResponse struct {
	Code   string              `json:"code"`
	Start  string              `json:"start,omitempty"`
	End    string              `json:"end,omitempty"`
	Count  int                 `json:"count"`
	Points []core.HistoryPoint `json:"points"`
}

// FundListResponse 基金列表响应
type FundListResponse struct {
	Total     int                  `json:"total"`
	FetchedAt time.Time            `json:"fetched_at"`
	Entries   []core.FundListEntry `json:"entries"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewAPIServer(cfg config.ServerConfig, service core.FundService, opts ...ServerOption) *APIServer {
	s := &APIServer{
		service: service,
		market:  timing.DefaultMarketTime(),
		cfg:     cfg,
		logger:  logger.WithComponent("APIServer"),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router 组装路由
func (s *APIServer) Router() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(s.corsMiddleware())

	router.GET("/health", s.healthCheck)
	router.GET("/stats", s.getStats)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/funds", s.getFunds)
		v1.GET("/funds/:code", s.getFund)
		v1.GET("/funds/:code/realtime", s.getRealtime)
		v1.GET("/funds/:code/history", s.getHistory)
		v1.GET("/funds/:code/chart", s.getChart)

		v1.GET("/batch/realtime", s.batchRealtime)
		v1.GET("/batch/history", s.batchHistory)

		stored := v1.Group("/stored")
		{
			stored.GET("/funds/:code/latest", s.getStoredLatest)
			stored.GET("/funds/:code/history", s.getStoredHistory)
		}
	}

	return router
}

func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.Router(),
	}

	s.logger.WithField("port", s.cfg.Port).Info("Starting API server...")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	return nil
}

func (s *APIServer) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to gracefully shutdown server")
	}
}

func (s *APIServer) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

func (s *APIServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// statusOf 把错误代码映射为 HTTP 状态码
func statusOf(err error) (int, string) {
	switch apperr.CodeOf(err) {
	case apperr.ErrTransport, apperr.ErrExtraction, apperr.ErrDecode:
		return http.StatusBadGateway, "upstream_error"
	case apperr.ErrValidation:
		return http.StatusBadRequest, "bad_request"
	case apperr.ErrCacheMiss:
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *APIServer) writeError(c *gin.Context, err error, code string) {
	status, kind := statusOf(err)
	entry := s.logger.WithError(err).WithField("path", c.Request.URL.Path)
	if code != "" {
		entry = entry.WithField("code", code)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request failed")
	}
	c.JSON(status, ErrorResponse{Error: kind, Message: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: msg})
}

func (s *APIServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"uptime":    time.Since(s.started).String(),
		"store":     s.store != nil,
		"market": gin.H{
			"estimate_window": s.market.IsEstimateWindow(),
			"after_close":     s.market.IsAfterClose(),
			"next_estimate":   s.market.NextEstimateStart(),
		},
	})
}

func (s *APIServer) getStats(c *gin.Context) {
	stats := gin.H{
		"timestamp": time.Now(),
		"uptime":    time.Since(s.started).String(),
	}
	if s.cache != nil {
		stats["cache"] = s.cache.Stats()
	}
	c.JSON(http.StatusOK, stats)
}

func (s *APIServer) getRealtime(c *gin.Context) {
	code := c.Param("code")
	ctx, cancel := s.requestContext(c)
	defer cancel()

	quote, err := s.service.FetchRealtime(ctx, code)
	if err != nil {
		s.writeError(c, err, code)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// parseRange 解析 start/end 查询参数(YYYY-MM-DD，中国时区)
func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	var err error
	if v := c.Query("start"); v != "" {
		if from, err = time.ParseInLocation(dateLayout, v, timing.ChinaLocation); err != nil {
			badRequest(c, "Invalid start date, use YYYY-MM-DD")
			return from, to, false
		}
	}
	if v := c.Query("end"); v != "" {
		if to, err = time.ParseInLocation(dateLayout, v, timing.ChinaLocation); err != nil {
			badRequest(c, "Invalid end date, use YYYY-MM-DD")
			return from, to, false
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		badRequest(c, "end must not be before start")
		return from, to, false
	}
	return from, to, true
}

func historyResponse(c *gin.Context, series *core.HistorySeries, from, to time.Time) {
	points := series.Between(from, to)
	if points == nil {
		points = []core.HistoryPoint{}
	}
	resp := HistoryResponse{Code: series.Code, Count: len(points), Points: points}
	if !from.IsZero() {
		resp.Start = from.Format(dateLayout)
	}
	if !to.IsZero() {
		resp.End = to.Format(dateLayout)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) getHistory(c *gin.Context) {
	code := c.Param("code")
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	series, err := s.service.FetchHistory(ctx, code)
	if err != nil {
		s.writeError(c, err, code)
		return
	}
	historyResponse(c, series, from, to)
}

func (s *APIServer) getChart(c *gin.Context) {
	code := c.Param("code")
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	width, ok := queryInt(c, "width", 0)
	if !ok {
		return
	}
	height, ok := queryInt(c, "height", 0)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	series, err := s.service.FetchHistory(ctx, code)
	if err != nil {
		s.writeError(c, err, code)
		return
	}

	window := &core.HistorySeries{Code: series.Code, Points: series.Between(from, to)}
	img, err := chart.RenderNAV(window, chart.Options{Width: width, Height: height})
	if err != nil {
		s.writeError(c, err, code)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

// queryInt 读取非负整数查询参数，缺省时返回 def；无法解析或为负数时写 400 并返回 false
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (s *APIServer) getFunds(c *gin.Context) {
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	list, err := s.service.FetchFundList(ctx)
	if err != nil {
		s.writeError(c, err, "")
		return
	}

	entries := list.Entries
	if t := c.Query("type"); t != "" {
		entries = list.FilterByType(t)
	}
	if q := c.Query("q"); q != "" {
		entries = core.Search(entries, q)
	}

	total := len(entries)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}

	page := entries[offset:end]
	if page == nil {
		page = []core.FundListEntry{}
	}
	c.JSON(http.StatusOK, FundListResponse{Total: total, FetchedAt: list.FetchedAt, Entries: page})
}

func (s *APIServer) getFund(c *gin.Context) {
	code := c.Param("code")
	ctx, cancel := s.requestContext(c)
	defer cancel()

	list, err := s.service.FetchFundList(ctx)
	if err != nil {
		s.writeError(c, err, code)
		return
	}
	entry, ok := list.Find(code)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Fund not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// parseCodes 解析 codes=001186,000001
func parseCodes(c *gin.Context) ([]string, int, bool) {
	var codes []string
	for _, code := range strings.Split(c.Query("codes"), ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		badRequest(c, "codes is required")
		return nil, 0, false
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return nil, 0, false
	}
	return codes, limit, true
}

func (s *APIServer) batchRealtime(c *gin.Context) {
	codes, limit, ok := parseCodes(c)
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, s.service.BatchRealtime(ctx, codes, limit))
}

func (s *APIServer) batchHistory(c *gin.Context) {
	codes, limit, ok := parseCodes(c)
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, s.service.BatchHistory(ctx, codes, limit))
}

func (s *APIServer) requireStore(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "No readable storage configured"})
		return false
	}
	return true
}

func (s *APIServer) getStoredLatest(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	code := c.Param("code")
	ctx, cancel := s.requestContext(c)
	defer cancel()

	quote, err := s.store.LatestQuote(ctx, code)
	if err != nil {
		s.writeError(c, err, code)
		return
	}
	if quote == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "No stored quote"})
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *APIServer) getStoredHistory(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	code := c.Param("code")
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	series, err := s.store.LoadHistory(ctx, code)
	if err != nil {
		s.writeError(c, err, code)
		return
	}
	historyResponse(c, series, from, to)
}

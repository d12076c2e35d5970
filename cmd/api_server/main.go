package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"fundsub/pkg/cache"
	"fundsub/pkg/config"
	"fundsub/pkg/logger"
	"fundsub/pkg/provider/eastmoney"
	"fundsub/pkg/storage"
	"fundsub/pkg/timing"
)

var (
	configPath = flag.String("config", "", "配置文件路径 (例如 config/fundsub.yaml)")
	port       = flag.String("port", "", "监听端口，覆盖配置文件")
	logLevel   = flag.String("log-level", "", "日志级别 (debug, info, warn, error)")
	persist    = flag.Bool("persist", false, "查询到的数据同时写入配置的存储")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.SetLogLevel(*logLevel)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger.Init(cfg.Logger)
	log := logger.WithComponent("api_server")

	gin.SetMode(cfg.Server.Mode)

	clock := &timing.SystemTimeService{}
	fundCache, err := cache.Open(cfg.Cache, clock)
	if err != nil {
		log.WithError(err).Fatal("Failed to create cache")
	}

	opts := []eastmoney.Option{eastmoney.WithCache(fundCache), eastmoney.WithTimeService(clock)}
	var sink storage.Sink
	if *persist {
		if sink, err = storage.Open(cfg.Storage, "api_server"); err != nil {
			log.WithError(err).Fatal("Failed to open storage")
		}
		if sink != nil {
			opts = append(opts, eastmoney.WithSink(sink))
		}
	}
	client := eastmoney.NewClient(cfg, opts...)

	serverOpts := []ServerOption{WithCacheStats(fundCache)}
	var reader *storage.SQLiteSink
	if cfg.Storage.SQLitePath != "" {
		if reader, err = storage.OpenSQLite(cfg.Storage.SQLitePath); err != nil {
			log.WithError(err).Warn("SQLite unavailable, stored endpoints disabled")
		} else {
			serverOpts = append(serverOpts, WithStore(reader))
		}
	}

	apiServer := NewAPIServer(cfg.Server, client, serverOpts...)
	if err := apiServer.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start API server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API server...")
	apiServer.Stop()

	if sink != nil {
		if err := sink.Close(); err != nil {
			log.WithError(err).Error("Failed to close storage")
		}
	}
	if reader != nil {
		reader.Close()
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundsub/pkg/cache"
	"fundsub/pkg/config"
	"fundsub/pkg/logger"
	"fundsub/pkg/provider/eastmoney"
	"fundsub/pkg/scheduler"
	"fundsub/pkg/storage"
	"fundsub/pkg/timing"
)

var (
	configPath = flag.String("config", "config/fundsub.yaml", "运行配置文件路径")
	jobsPath   = flag.String("jobs", "config/jobs.yaml", "任务配置文件路径")
	nodeID     = flag.String("node-id", "", "节点ID（默认自动生成）")
	logLevel   = flag.String("log-level", "", "日志级别，覆盖配置文件")
	noDefaults = flag.Bool("no-default-jobs", false, "不注册内置的基金列表刷新任务")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.SetLogLevel(*logLevel)
	}

	logger.Init(cfg.Logger)
	log := logger.WithComponent("fetcher")

	if *nodeID == "" {
		*nodeID = fmt.Sprintf("fetcher-%d", time.Now().Unix())
	}
	log.WithField("nodeID", *nodeID).Info("启动 Fetcher")
	log.Debugf("配置参数: config=%s, jobs=%s", *configPath, *jobsPath)

	clock := &timing.SystemTimeService{}
	fundCache, err := cache.Open(cfg.Cache, clock)
	if err != nil {
		log.Errorf("创建缓存失败: %v", err)
		os.Exit(1)
	}

	sink, err := storage.Open(cfg.Storage, *nodeID)
	if err != nil {
		log.Errorf("打开存储失败: %v", err)
		os.Exit(1)
	}

	opts := []eastmoney.Option{eastmoney.WithCache(fundCache), eastmoney.WithTimeService(clock)}
	if sink != nil {
		opts = append(opts, eastmoney.WithSink(sink))
	} else {
		log.Warn("未配置任何存储，抓取结果只保留在缓存中")
	}
	client := eastmoney.NewClient(cfg, opts...)

	jobScheduler := scheduler.NewJobScheduler()
	jobScheduler.SetExecutor(NewFundExecutor(client, *nodeID, log))

	if _, err := os.Stat(*jobsPath); err == nil {
		if err := jobScheduler.LoadConfig(*jobsPath); err != nil {
			log.Errorf("加载任务配置失败: %v", err)
			os.Exit(1)
		}
	} else {
		log.Warnf("任务配置文件不存在: %s，只运行内置任务", *jobsPath)
	}

	if !*noDefaults {
		for _, job := range scheduler.DefaultJobs() {
			if _, err := jobScheduler.GetJob(job.Name); err == nil {
				continue
			}
			if err := jobScheduler.AddJob(job); err != nil {
				log.WithError(err).Warnf("注册内置任务失败: %s", job.Name)
			}
		}
	}

	if err := jobScheduler.Start(); err != nil {
		log.Errorf("启动任务调度器失败: %v", err)
		os.Exit(1)
	}

	jobs := jobScheduler.GetAllJobs()
	log.Infof("已加载 %d 个任务", len(jobs))
	for _, job := range jobs {
		status := "启用"
		if !job.Config.Enabled {
			status = "禁用"
		}
		log.Debugf("任务详情: %s (%s): %s %s", job.Config.Name, status, job.Config.Schedule, job.Config.Task.Kind)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Fetcher 运行中，按 Ctrl+C 停止...")
	<-sigChan

	log.Info("收到停止信号，正在优雅关闭...")

	if err := jobScheduler.Stop(); err != nil {
		log.Errorf("停止任务调度器失败: %v", err)
	}

	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Errorf("关闭存储失败: %v", err)
		}
	}

	log.Infof("Fetcher 已停止，缓存命中率 %.2f", fundCache.Stats().HitRate)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fundsub/pkg/cache"
	"fundsub/pkg/config"
	"fundsub/pkg/core"
	"fundsub/pkg/logger"
	"fundsub/pkg/provider/eastmoney"
	"fundsub/pkg/storage"
	"fundsub/pkg/timing"
)

const usage = `用法: fundsub [全局参数] <命令> [参数]

命令:
  realtime <代码>...   盘中估值
  history  <代码>      历史净值
  list                 基金列表
  plot     <代码>      绘制净值走势图(PNG)

全局参数:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("fundsub", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "配置文件路径")
	logLevel := global.String("log-level", "warn", "日志级别")
	persist := global.Bool("persist", false, "结果写入配置的存储")
	global.Usage = func() {
		fmt.Fprint(stderr, usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("缺少命令")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.SetLogLevel(*logLevel)
	logger.Init(cfg.Logger)

	svc, closeFn, err := newService(cfg, *persist)
	if err != nil {
		return err
	}
	defer closeFn()

	cli := &CLI{service: svc, out: stdout, errOut: stderr}
	return cli.Dispatch(ctx, global.Arg(0), global.Args()[1:])
}

func newService(cfg *config.Config, persist bool) (core.FundService, func(), error) {
	clock := &timing.SystemTimeService{}
	fundCache, err := cache.Open(cfg.Cache, clock)
	if err != nil {
		return nil, nil, err
	}

	opts := []eastmoney.Option{eastmoney.WithCache(fundCache), eastmoney.WithTimeService(clock)}
	closeFn := func() {}
	if persist {
		sink, err := storage.Open(cfg.Storage, "fundsub-cli")
		if err != nil {
			return nil, nil, err
		}
		if sink != nil {
			opts = append(opts, eastmoney.WithSink(sink))
			closeFn = func() {
				if err := sink.Close(); err != nil {
					logger.Warnf("关闭存储失败: %v", err)
				}
			}
		}
	}
	return eastmoney.NewClient(cfg, opts...), closeFn, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"fundsub/pkg/core"
	"fundsub/pkg/logger"
	"fundsub/pkg/scheduler"
)

// FundExecutor 任务执行器，按任务类型调用基金数据服务；落库由服务内部的 Sink 完成
type FundExecutor struct {
	service core.FundService
	nodeID  string
	log     *logger.Entry
}

// NewFundExecutor 创建新的 FundExecutor 实例
func NewFundExecutor(service core.FundService, nodeID string, baseLog *logger.Entry) *FundExecutor {
	return &FundExecutor{
		service: service,
		nodeID:  nodeID,
		log:     baseLog.WithField("executor", "fund"),
	}
}

// Execute 实现 JobExecutor 接口
//
// 批量任务中部分基金失败不算任务失败，全部失败时返回错误。
func (e *FundExecutor) Execute(ctx context.Context, job *scheduler.Job) error {
	log := e.log.WithFields(map[string]interface{}{
		"job":    job.Config.Name,
		"jobID":  job.ID,
		"nodeID": e.nodeID,
		"kind":   job.Config.Task.Kind,
	})

	task := job.Config.Task
	start := time.Now()

	switch task.Kind {
	case scheduler.TaskRealtime:
		results := e.service.BatchRealtime(ctx, task.Codes, task.Concurrency)
		ok := 0
		for _, q := range results {
			if q != nil {
				ok++
			}
		}
		return e.summarize(log, ok, len(results), time.Since(start))

	case scheduler.TaskHistory:
		results := e.service.BatchHistory(ctx, task.Codes, task.Concurrency)
		ok := 0
		for _, s := range results {
			if s != nil {
				ok++
			}
		}
		return e.summarize(log, ok, len(results), time.Since(start))

	case scheduler.TaskFundList:
		list, err := e.service.FetchFundList(ctx)
		if err != nil {
			return fmt.Errorf("获取基金列表失败: %w", err)
		}
		log.WithField("entries", len(list.Entries)).Infof("基金列表刷新完成，耗时 %v", time.Since(start))
		return nil

	default:
		return fmt.Errorf("不支持的任务类型: %s", task.Kind)
	}
}

func (e *FundExecutor) summarize(log *logger.Entry, ok, total int, elapsed time.Duration) error {
	log.WithFields(map[string]interface{}{
		"success": ok,
		"total":   total,
	}).Infof("任务完成，耗时 %v", elapsed)

	if total > 0 && ok == 0 {
		return fmt.Errorf("全部 %d 只基金获取失败", total)
	}
	return nil
}

package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"fundsub/pkg/apperr"
	"fundsub/pkg/logger"
	"fundsub/pkg/timing"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// jobTimeout 单次任务执行的最长时间
const jobTimeout = 5 * time.Minute

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// DefaultJobScheduler 默认任务调度器实现，cron 表达式按中国标准时间解释。
type DefaultJobScheduler struct {
	cron     *cron.Cron
	jobs     map[string]*Job
	executor JobExecutor
	market   *timing.MarketTime
	mu       sync.RWMutex
	logger   *logrus.Entry
	ctx      context.Context
	cancel   context.CancelFunc
}

var _ JobScheduler = (*DefaultJobScheduler)(nil)

// Option 调度器选项
type Option func(*DefaultJobScheduler)

// WithMarketTime 指定判断估值时段所用的市场时钟
func WithMarketTime(m *timing.MarketTime) Option {
	return func(s *DefaultJobScheduler) { s.market = m }
}

// NewJobScheduler 创建新的任务调度器
func NewJobScheduler(opts ...Option) *DefaultJobScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &DefaultJobScheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(timing.ChinaLocation)),
		jobs:   make(map[string]*Job),
		market: timing.DefaultMarketTime(),
		logger: logger.WithComponent("Scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadConfig 从配置文件加载任务配置
func (s *DefaultJobScheduler) LoadConfig(configPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return apperr.New(apperr.ErrConfigInvalid, fmt.Sprintf("配置文件不存在: %s", configPath))
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return apperr.Wrap(apperr.ErrConfigInvalid, "读取配置文件失败", err)
	}

	var config JobsConfig
	if err := v.Unmarshal(&config); err != nil {
		return apperr.Wrap(apperr.ErrConfigInvalid, "解析配置文件失败", err)
	}

	// 无效任务只跳过，不影响其余任务
	for _, jobConfig := range config.Jobs {
		if err := s.validateJobConfig(jobConfig); err != nil {
			s.logger.WithError(err).Warnf("跳过无效任务配置: %s", jobConfig.Name)
			continue
		}

		if err := s.addJobInternal(jobConfig); err != nil {
			s.logger.WithError(err).Errorf("添加任务失败: %s", jobConfig.Name)
			continue
		}
	}

	s.logger.Infof("成功加载 %d 个任务配置", len(s.jobs))
	return nil
}

// Start 启动调度器
func (s *DefaultJobScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.executor == nil {
		return fmt.Errorf("任务执行器未设置")
	}

	s.cron.Start()
	s.logger.Info("任务调度器已启动")

	s.updateNextRunTimes()

	return nil
}

// Stop 停止调度器，等待正在执行的任务结束。
// 不持有 s.mu，正在执行的任务收尾时需要该锁。
func (s *DefaultJobScheduler) Stop() error {
	s.cancel()
	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		s.logger.Info("任务调度器已停止")
	case <-time.After(30 * time.Second):
		s.logger.Warn("任务调度器停止超时")
	}

	return nil
}

// AddJob 添加任务
func (s *DefaultJobScheduler) AddJob(config JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateJobConfig(config); err != nil {
		return err
	}

	return s.addJobInternal(config)
}

// RemoveJob 移除任务
func (s *DefaultJobScheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobName]
	if !exists {
		return fmt.Errorf("任务不存在: %s", jobName)
	}

	s.cron.Remove(job.EntryID)
	delete(s.jobs, jobName)

	s.logger.Infof("任务已移除: %s", jobName)
	return nil
}

// GetJob 获取任务状态
func (s *DefaultJobScheduler) GetJob(jobName string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobName]
	if !exists {
		return nil, fmt.Errorf("任务不存在: %s", jobName)
	}

	// 返回副本
	jobCopy := *job
	return &jobCopy, nil
}

// GetAllJobs 获取所有任务
func (s *DefaultJobScheduler) GetAllJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}

	return jobs
}

// RunJob 手动执行任务，忽略估值时段限制
func (s *DefaultJobScheduler) RunJob(jobName string) error {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("任务不存在: %s", jobName)
	}

	if !job.Config.Enabled {
		return fmt.Errorf("任务已禁用: %s", jobName)
	}

	s.mu.RLock()
	ready := s.executor != nil
	s.mu.RUnlock()
	if !ready {
		return fmt.Errorf("任务执行器未设置")
	}

	go s.executeJob(job)
	return nil
}

// SetExecutor 设置任务执行器
func (s *DefaultJobScheduler) SetExecutor(executor JobExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// validateJobConfig 验证任务配置
func (s *DefaultJobScheduler) validateJobConfig(config JobConfig) error {
	invalid := func(msg string) error {
		return apperr.New(apperr.ErrConfigInvalid, msg).WithContext("job", config.Name)
	}

	if config.Name == "" {
		return invalid("任务名称不能为空")
	}

	if config.Schedule == "" {
		return invalid("任务调度表达式不能为空")
	}

	if _, err := cronParser.Parse(config.Schedule); err != nil {
		return apperr.Wrap(apperr.ErrConfigInvalid, fmt.Sprintf("无效的调度表达式 '%s'", config.Schedule), err)
	}

	if !config.Task.Kind.Valid() {
		return invalid(fmt.Sprintf("未知的任务类型: %q", config.Task.Kind))
	}

	if config.Task.Kind != TaskFundList && len(config.Task.Codes) == 0 {
		return invalid("基金代码列表不能为空")
	}

	if config.Task.Concurrency < 0 {
		return invalid("并发数不能为负数")
	}

	return nil
}

// addJobInternal 内部添加任务方法（需要持有锁）
func (s *DefaultJobScheduler) addJobInternal(config JobConfig) error {
	if _, exists := s.jobs[config.Name]; exists {
		return fmt.Errorf("任务已存在: %s", config.Name)
	}

	job := &Job{
		ID:     uuid.New().String(),
		Config: config,
		Status: JobStatusPending,
	}

	if !config.Enabled {
		job.Status = JobStatusDisabled
		s.jobs[config.Name] = job
		s.logger.Infof("任务已添加（已禁用）: %s", config.Name)
		return nil
	}

	entryID, err := s.cron.AddFunc(config.Schedule, func() { s.trigger(job) })
	if err != nil {
		return fmt.Errorf("添加任务到调度器失败: %w", err)
	}

	job.EntryID = entryID
	s.jobs[config.Name] = job

	s.logger.Infof("任务已添加: %s (调度: %s, 类型: %s)", config.Name, config.Schedule, config.Task.Kind)
	return nil
}

// trigger 由 cron 调用，限定估值时段的任务在时段外只计数跳过
func (s *DefaultJobScheduler) trigger(job *Job) {
	if job.Config.TradingHoursOnly && !s.market.IsEstimateWindow() {
		s.mu.Lock()
		job.SkipCount++
		s.mu.Unlock()
		s.logger.Debugf("不在估值时段，跳过任务: %s (下个时段 %s)",
			job.Config.Name, s.market.NextEstimateStart().Format("2006-01-02 15:04"))
		return
	}
	s.executeJob(job)
}

// executeJob 执行任务
func (s *DefaultJobScheduler) executeJob(job *Job) {
	s.mu.Lock()
	if job.Status == JobStatusRunning {
		s.mu.Unlock()
		s.logger.Warnf("任务正在运行，跳过本次执行: %s", job.Config.Name)
		return
	}
	job.Status = JobStatusRunning
	now := time.Now()
	job.LastRun = &now
	job.RunCount++
	executor := s.executor
	s.mu.Unlock()

	s.logger.Infof("开始执行任务: %s", job.Config.Name)

	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	err := executor.Execute(ctx, job)

	s.mu.Lock()
	if err != nil {
		job.Status = JobStatusError
		job.LastError = err
		job.ErrorCount++
		s.logger.WithError(err).Errorf("任务执行失败: %s", job.Config.Name)
	} else {
		job.Status = JobStatusPending
		job.LastError = nil
		s.logger.Infof("任务执行成功: %s", job.Config.Name)
	}
	s.updateNextRunTimes()
	s.mu.Unlock()
}

// updateNextRunTimes 更新所有任务的下次运行时间（需要持有锁）
func (s *DefaultJobScheduler) updateNextRunTimes() {
	entries := s.cron.Entries()
	for _, job := range s.jobs {
		if !job.Config.Enabled {
			continue
		}
		for _, entry := range entries {
			if entry.ID == job.EntryID {
				nextRun := entry.Next
				job.NextRun = &nextRun
				break
			}
		}
	}
}

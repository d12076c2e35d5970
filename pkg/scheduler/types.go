package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskKind 任务抓取的数据类型
type TaskKind string

const (
	TaskRealtime TaskKind = "realtime"
	TaskHistory  TaskKind = "history"
	TaskFundList TaskKind = "fund_list"
)

// Valid 判断是否为已知任务类型
func (k TaskKind) Valid() bool {
	switch k {
	case TaskRealtime, TaskHistory, TaskFundList:
		return true
	}
	return false
}

// JobConfig 定义单个任务的配置
type JobConfig struct {
	Name     string     `yaml:"name" json:"name" mapstructure:"name"`
	Enabled  bool       `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Schedule string     `yaml:"schedule" json:"schedule" mapstructure:"schedule"`
	Task     TaskConfig `yaml:"task" json:"task" mapstructure:"task"`
	// TradingHoursOnly 为 true 时，仅在估值时段（交易日 09:30-11:30、13:00-15:00）内触发
	TradingHoursOnly bool `yaml:"trading_hours_only" json:"trading_hours_only" mapstructure:"trading_hours_only"`
}

// TaskConfig 定义任务要抓取的内容
type TaskConfig struct {
	Kind        TaskKind `yaml:"kind" json:"kind" mapstructure:"kind"`
	Codes       []string `yaml:"codes,omitempty" json:"codes,omitempty" mapstructure:"codes"`
	Concurrency int      `yaml:"concurrency,omitempty" json:"concurrency,omitempty" mapstructure:"concurrency"`
}

// JobsConfig 定义整个任务配置文件结构
type JobsConfig struct {
	Jobs []JobConfig `yaml:"jobs" json:"jobs" mapstructure:"jobs"`
}

// Job 表示一个运行中的任务
type Job struct {
	ID         string
	Config     JobConfig
	EntryID    cron.EntryID
	Status     JobStatus
	LastRun    *time.Time
	NextRun    *time.Time
	RunCount   int64
	SkipCount  int64
	ErrorCount int64
	LastError  error
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusStopped  JobStatus = "stopped"
	JobStatusError    JobStatus = "error"
	JobStatusDisabled JobStatus = "disabled"
)

// JobExecutor 任务执行器接口
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// JobScheduler 任务调度器接口
type JobScheduler interface {
	// 加载配置
	LoadConfig(configPath string) error

	// 启动调度器
	Start() error

	// 停止调度器
	Stop() error

	// 添加任务
	AddJob(config JobConfig) error

	// 移除任务
	RemoveJob(jobName string) error

	// 获取任务状态
	GetJob(jobName string) (*Job, error)

	// 获取所有任务
	GetAllJobs() []*Job

	// 手动执行任务
	RunJob(jobName string) error

	// 设置任务执行器
	SetExecutor(executor JobExecutor)
}

// DefaultJobs 返回内置任务：每天 03:00 刷新基金列表
func DefaultJobs() []JobConfig {
	return []JobConfig{
		{
			Name:     "fund-list-daily",
			Enabled:  true,
			Schedule: "0 0 3 * * *",
			Task:     TaskConfig{Kind: TaskFundList},
		},
	}
}

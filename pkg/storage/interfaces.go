package storage

import (
	"context"

	"fundsub/pkg/core"
)

// Sink 定义了持久化落地的行为。
// 获取成功的记录会被交给 Sink，Sink 失败只记录日志，不影响获取结果。
type Sink interface {
	// SaveQuote 保存一条估值快照，以 (code, estimate_time) 为键，重复写入覆盖。
	SaveQuote(ctx context.Context, quote *core.RealtimeQuote) error
	// SaveHistory 保存净值序列，以 (code, date) 为键，重复写入覆盖。
	SaveHistory(ctx context.Context, series *core.HistorySeries) error
	// ReplaceFundList 用新列表整体替换旧列表。
	ReplaceFundList(ctx context.Context, list *core.FundList) error
	// Close 关闭存储连接并释放所有资源。
	Close() error
}

// Reader 可回读的 Sink(SQLite、内存)
type Reader interface {
	LoadHistory(ctx context.Context, code string) (*core.HistorySeries, error)
	LoadFundList(ctx context.Context) (*core.FundList, error)
	LatestQuote(ctx context.Context, code string) (*core.RealtimeQuote, error)
}

package core

import (
	"context"
)

// FundService 对外的基金数据读取能力，HTTP 接口和定时任务都只依赖它
//
// 返回的记录可能来自缓存并被多个调用方共享，调用方只读不改。
type FundService interface {
	FetchRealtime(ctx context.Context, code string) (*RealtimeQuote, error)
	FetchHistory(ctx context.Context, code string) (*HistorySeries, error)
	FetchFundList(ctx context.Context) (*FundList, error)

	// limit <= 0 时使用配置的默认并发度；失败的代码对应 nil
	BatchRealtime(ctx context.Context, codes []string, limit int) map[string]*RealtimeQuote
	BatchHistory(ctx context.Context, codes []string, limit int) map[string]*HistorySeries
}

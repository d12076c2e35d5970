// Package testkit 提供测试用的基金数据服务替身。
package testkit

import (
	"context"
	"sync"

	"fundsub/pkg/apperr"
	"fundsub/pkg/batch"
	"fundsub/pkg/core"
)

// FakeFundService 基于内存数据的 core.FundService 实现
//
// 未登记的代码返回 TRANSPORT 错误，和真实服务请求失败时一致。
type FakeFundService struct {
	mu      sync.Mutex
	Quotes  map[string]*core.RealtimeQuote
	Series  map[string]*core.HistorySeries
	List    *core.FundList
	ListErr error
	calls   []Call
}

// Call 一次调用记录
type Call struct {
	Method string
	Code   string
	Limit  int
}

var _ core.FundService = (*FakeFundService)(nil)

// NewFakeFundService 创建空的替身
func NewFakeFundService() *FakeFundService {
	return &FakeFundService{
		Quotes: make(map[string]*core.RealtimeQuote),
		Series: make(map[string]*core.HistorySeries),
	}
}

func (f *FakeFundService) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// Calls 返回调用记录副本
func (f *FakeFundService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func notFound(code string) error {
	return apperr.New(apperr.ErrTransport, "status 404").WithContext("code", code)
}

func (f *FakeFundService) FetchRealtime(ctx context.Context, code string) (*core.RealtimeQuote, error) {
	f.record(Call{Method: "FetchRealtime", Code: code})
	f.mu.Lock()
	q, ok := f.Quotes[code]
	f.mu.Unlock()
	if !ok {
		return nil, notFound(code)
	}
	return q, nil
}

func (f *FakeFundService) FetchHistory(ctx context.Context, code string) (*core.HistorySeries, error) {
	f.record(Call{Method: "FetchHistory", Code: code})
	f.mu.Lock()
	s, ok := f.Series[code]
	f.mu.Unlock()
	if !ok {
		return nil, notFound(code)
	}
	return s, nil
}

func (f *FakeFundService) FetchFundList(ctx context.Context) (*core.FundList, error) {
	f.record(Call{Method: "FetchFundList"})
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if f.List == nil {
		return &core.FundList{}, nil
	}
	return f.List, nil
}

func (f *FakeFundService) BatchRealtime(ctx context.Context, codes []string, limit int) map[string]*core.RealtimeQuote {
	f.record(Call{Method: "BatchRealtime", Limit: limit})
	if limit <= 0 {
		limit = 1
	}
	return batch.Dispatch[core.RealtimeQuote](ctx, codes, limit, f.FetchRealtime)
}

func (f *FakeFundService) BatchHistory(ctx context.Context, codes []string, limit int) map[string]*core.HistorySeries {
	f.record(Call{Method: "BatchHistory", Limit: limit})
	if limit <= 0 {
		limit = 1
	}
	return batch.Dispatch[core.HistorySeries](ctx, codes, limit, f.FetchHistory)
}

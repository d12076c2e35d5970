package storage

import (
	"context"
	"errors"

	"fundsub/pkg/core"
)

// MultiSink 依次写入多个 Sink，单个失败不影响其他，错误合并返回
type MultiSink []Sink

func (m MultiSink) SaveQuote(ctx context.Context, q *core.RealtimeQuote) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.SaveQuote(ctx, q))
	}
	return errors.Join(errs...)
}

func (m MultiSink) SaveHistory(ctx context.Context, series *core.HistorySeries) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.SaveHistory(ctx, series))
	}
	return errors.Join(errs...)
}

func (m MultiSink) ReplaceFundList(ctx context.Context, list *core.FundList) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.ReplaceFundList(ctx, list))
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

var _ Sink = MultiSink(nil)

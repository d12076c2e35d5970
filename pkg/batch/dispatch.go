// Package batch 有界并发地对一组代码执行同一个获取函数。
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"fundsub/pkg/logger"
)

// FetchFunc 单个代码的获取函数
type FetchFunc[T any] func(ctx context.Context, id string) (*T, error)

// Result 单个代码的结果，Value 与 Err 互斥
type Result[T any] struct {
	Value *T
	Err   error
}

// DispatchResults 以最多 limit 个并发执行 fetch，返回每个代码的结果
//
// 重复代码只执行一次；某个代码失败(错误或 panic)不影响其他代码。所有任务结束后才返回。
// limit <= 0 时按 1 处理。
func DispatchResults[T any](ctx context.Context, ids []string, limit int, fetch FetchFunc[T]) map[string]Result[T] {
	unique := Dedupe(ids)
	results := make(map[string]Result[T], len(unique))
	if len(unique) == 0 {
		return results
	}
	if limit <= 0 {
		limit = 1
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)

	for _, id := range unique {
		id := id
		g.Go(func() error {
			v, err := safeFetch(ctx, id, fetch)
			mu.Lock()
			results[id] = Result[T]{Value: v, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Dispatch 同 DispatchResults，失败的代码映射为 nil 并记录告警日志
func Dispatch[T any](ctx context.Context, ids []string, limit int, fetch FetchFunc[T]) map[string]*T {
	log := logger.WithComponent("Batch")
	results := DispatchResults(ctx, ids, limit, fetch)

	out := make(map[string]*T, len(results))
	failed := 0
	for id, r := range results {
		if r.Err != nil {
			failed++
			log.WithError(r.Err).WithField("code", id).Warn("fetch failed")
		}
		out[id] = r.Value
	}
	if failed > 0 {
		log.Infof("batch finished: %d ok, %d failed", len(out)-failed, failed)
	}
	return out
}

// Dedupe 去重并保持首次出现顺序
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func safeFetch[T any](ctx context.Context, id string, fetch FetchFunc[T]) (v *T, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("panic while fetching %s: %v", id, r)
		}
	}()
	v, err = fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return v, nil
}

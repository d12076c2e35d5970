package cache

import (
	"context"
	"fmt"

	"fundsub/pkg/apperr"
)

// GetAs 取出 key 对应的值并转成 T
//
// 内存缓存直接存放 T；Redis 缓存返回 JSON 字节，这里负责解码。类型不符按未命中处理。
func GetAs[T any](ctx context.Context, c Cache, key string) (T, error) {
	var zero T
	v, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	switch val := v.(type) {
	case T:
		return val, nil
	case []byte:
		var out T
		if err := json.Unmarshal(val, &out); err != nil {
			return zero, apperr.Wrap(apperr.ErrCacheMiss, "cached value decode failed", err).WithContext("key", key)
		}
		return out, nil
	default:
		return zero, apperr.New(apperr.ErrCacheMiss, fmt.Sprintf("cached value has type %T", v)).WithContext("key", key)
	}
}

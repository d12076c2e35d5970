package cache

import (
	"fundsub/pkg/apperr"
)

// newMiss 构造 CACHE_MISS 错误
func newMiss(key string) error {
	return apperr.New(apperr.ErrCacheMiss, "cache miss").WithContext("key", key)
}

// IsMiss 判断是否为未命中
func IsMiss(err error) bool {
	return apperr.HasCode(err, apperr.ErrCacheMiss)
}

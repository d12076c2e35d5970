// Package apperr 定义基金数据抓取链路上的统一错误类型。
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

const (
	// ErrTransport 表示请求在耗尽重试次数后仍然失败（超时、连接失败、非2xx状态码）。
	ErrTransport ErrorCode = "TRANSPORT"
	// ErrExtraction 表示在响应文本中找不到预期的标记或括号。
	ErrExtraction ErrorCode = "EXTRACTION"
	// ErrDecode 表示找到了候选片段，但 JSON 或元组结构不合法。
	ErrDecode ErrorCode = "DECODE"
	// ErrValidation 预留给字段级校验。
	ErrValidation ErrorCode = "VALIDATION"

	// ErrCacheMiss 表示缓存中没有有效条目（不存在或已过期）。
	ErrCacheMiss ErrorCode = "CACHE_MISS"
	// ErrConfigInvalid 表示配置无效。
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ErrStorageIO 表示持久化写入失败。
	ErrStorageIO ErrorCode = "STORAGE_IO"
)

// Error 基础错误类型
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// New 创建新的错误
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// Wrap 包装现有错误
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := New(code, message)
	e.Cause = cause
	return e
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 支持错误包装
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误代码比较，errors.Is(err, apperr.New(apperr.ErrDecode, "")) 即可判断类别。
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithContext 为错误附加一个键值对形式的上下文信息。
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// CodeOf 返回错误链上第一个 *Error 的代码，不存在时返回空字符串。
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode 判断错误链上是否存在指定代码的错误
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

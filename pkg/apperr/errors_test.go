package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := New(ErrExtraction, "marker not found")
	assert.Equal(t, "EXTRACTION: marker not found", err.Error())

	wrapped := Wrap(ErrTransport, "request failed after 3 attempts", errors.New("connection refused"))
	assert.Equal(t, "TRANSPORT: request failed after 3 attempts: connection refused", wrapped.Error())
}

func TestError_IsByCode(t *testing.T) {
	err := Wrap(ErrDecode, "bad payload", errors.New("unexpected EOF"))
	outer := fmt.Errorf("fetch 001186: %w", err)

	assert.True(t, errors.Is(outer, New(ErrDecode, "")))
	assert.False(t, errors.Is(outer, New(ErrTransport, "")))
	assert.Equal(t, ErrDecode, CodeOf(outer))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestError_HasCodeWalksCauses(t *testing.T) {
	inner := New(ErrCacheMiss, "cache miss")
	outer := Wrap(ErrStorageIO, "flush failed", inner)

	assert.True(t, HasCode(outer, ErrStorageIO))
	assert.True(t, HasCode(outer, ErrCacheMiss))
	assert.False(t, HasCode(outer, ErrDecode))
	assert.False(t, HasCode(nil, ErrDecode))
}

func TestError_WithContext(t *testing.T) {
	err := New(ErrExtraction, "marker not found").
		WithContext("marker", "Data_ACWorthTrend").
		WithContext("code", "001186")

	assert.Equal(t, "Data_ACWorthTrend", err.Context["marker"])
	assert.Equal(t, "001186", err.Context["code"])
}

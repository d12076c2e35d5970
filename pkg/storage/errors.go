package storage

import (
	"fundsub/pkg/apperr"
)

// ioErr 包装底层存储错误
func ioErr(op string, cause error) *apperr.Error {
	return apperr.Wrap(apperr.ErrStorageIO, op, cause)
}

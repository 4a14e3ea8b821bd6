package repository

import "errors"

var (
	ErrUnauthorized   = errors.New("credentials rejected by remote store")
	ErrRecordNotFound = errors.New("record not found")
	// ErrSwapConflict means the record changed between read and write.
	ErrSwapConflict = errors.New("record changed since it was read")
)

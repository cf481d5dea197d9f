package store

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrReadOnly     = errors.New("store is read-only")
	ErrUnauthorized = errors.New("unknown api token")
)

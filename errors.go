package chainmap

import "errors"

// Sentinel errors returned by table operations. Wrapped forms carry the
// offending key or other detail; match with errors.Is.
var (
	ErrZeroCapacity = errors.New("capacity must be at least 1")
	ErrEmptyKey     = errors.New("key must not be empty")
	ErrNilValue     = errors.New("value must not be nil")
	ErrNilCallback  = errors.New("callback must not be nil")
	ErrNilWriter    = errors.New("writer must not be nil")
	ErrDuplicateKey = errors.New("key already present")
	ErrKeyNotFound  = errors.New("key not found")
	ErrTableClosed  = errors.New("table is closed")
	ErrBadSnapshot  = errors.New("malformed snapshot")
)

package lock

import "errors"

var (
	// ErrNotAcquired is returned when the context ends before the lock is obtained.
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrBackend wraps failures of the lock backend itself.
	ErrBackend = errors.New("lock backend failure")
)

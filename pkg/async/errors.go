package async

import "errors"

var (
	ErrTimeout = errors.New("async: operation timed out waiting for completion")
	ErrPanic   = errors.New("async: task panicked")
)

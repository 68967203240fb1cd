package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidLimit    = errors.New("ratelimit: invalid limit")
	ErrInvalidInterval = errors.New("ratelimit: invalid interval")
	ErrKeyRequired     = errors.New("ratelimit: key is required")
)

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected caller should wait. It is never below
// one second for a rejected request.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	return max(time.Second, r.ResetAt.Sub(now))
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

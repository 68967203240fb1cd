package lock

import (
	"context"
	"errors"
	"time"
)

// Locker obtains exclusive ownership of a key.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	// The returned release function is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// WithLock runs fn while holding the lock for key.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

func notAcquired(ctx context.Context) error {
	return errors.Join(ErrNotAcquired, ctx.Err())
}

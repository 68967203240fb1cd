package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter allows limit requests per key in each fixed window.
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithKeyPrefix namespaces counter keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) { l.prefix = prefix }
}

// NewRedisLimiter creates a limiter backed by client.
func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration, opts ...RedisOption) (*RedisLimiter, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}
	l := &RedisLimiter{client: client, limit: limit, window: window, prefix: "ratelimit:", now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow increments the counter of the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyRequired
	}
	now := l.now()
	start := now.Truncate(l.window)
	counter := fmt.Sprintf("%s%s:%d", l.prefix, key, start.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, counter)
	pipe.PExpire(ctx, counter, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	n := int(incr.Val())
	return Result{
		Allowed:   n <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-n),
		ResetAt:   start.Add(l.window),
	}, nil
}

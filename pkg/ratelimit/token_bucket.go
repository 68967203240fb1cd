package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket refills rate tokens every interval up to burst. State lives
// in memory; idle buckets are dropped once full.
type TokenBucket struct {
	rate     int
	interval time.Duration
	burst    int
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens int
	refill time.Time
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithBurst sets the bucket capacity. It is never below the rate.
func WithBurst(burst int) TokenBucketOption {
	return func(tb *TokenBucket) {
		if burst > 0 {
			tb.burst = burst
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenBucketOption {
	return func(tb *TokenBucket) { tb.now = now }
}

// NewTokenBucket creates an in-memory token bucket limiter.
func NewTokenBucket(rate int, interval time.Duration, opts ...TokenBucketOption) (*TokenBucket, error) {
	if rate <= 0 {
		return nil, ErrInvalidLimit
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	tb := &TokenBucket{
		rate:     rate,
		interval: interval,
		burst:    rate,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(tb)
	}
	tb.burst = max(tb.burst, tb.rate)
	return tb, nil
}

// Allow takes one token for key.
func (tb *TokenBucket) Allow(_ context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyRequired
	}
	now := tb.now()

	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.burst, refill: now}
		tb.buckets[key] = b
	}
	if elapsed := now.Sub(b.refill); elapsed >= tb.interval {
		steps := int(elapsed / tb.interval)
		b.tokens = min(tb.burst, b.tokens+steps*tb.rate)
		b.refill = b.refill.Add(time.Duration(steps) * tb.interval)
	}

	res := Result{Limit: tb.burst, ResetAt: b.refill.Add(tb.interval)}
	if b.tokens > 0 {
		b.tokens--
		res.Allowed = true
	}
	res.Remaining = b.tokens
	tb.sweep(now)
	return res, nil
}

// sweep drops buckets that would be full again.
func (tb *TokenBucket) sweep(now time.Time) {
	if len(tb.buckets) < 1024 {
		return
	}
	full := time.Duration((tb.burst+tb.rate-1)/tb.rate) * tb.interval
	for key, b := range tb.buckets {
		if now.Sub(b.refill) >= full {
			delete(tb.buckets, key)
		}
	}
}

package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runner executes detached tasks and tracks them until they finish.
type Runner struct {
	wg      sync.WaitGroup
	log     *slog.Logger
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets where task failures are reported.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTimeout bounds each task. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: slog.Default(), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go runs fn in its own goroutine. ctx values are kept but its cancellation
// is not: a finished request must not abort the side effect.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := run(ctx, fn); err != nil {
			r.log.ErrorContext(ctx, "background task failed",
				slog.String("task", name),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until every task finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrTimeout, ctx.Err())
	}
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Join(ErrPanic, fmt.Errorf("%v", p))
		}
	}()
	return fn(ctx)
}

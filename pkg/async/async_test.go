package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/async"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

func TestRunner(t *testing.T) {
	t.Parallel()

	t.Run("survives caller cancellation", func(t *testing.T) {
		t.Parallel()
		r := async.NewRunner(async.WithLogger(logger.Discard()))
		ctx, cancel := context.WithCancel(context.Background())

		var ran atomic.Bool
		r.Go(ctx, "task", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			ran.Store(ctx.Err() == nil)
			return nil
		})
		cancel()

		require.NoError(t, r.Wait(context.Background()))
		assert.True(t, ran.Load())
	})

	t.Run("recovers panics", func(t *testing.T) {
		t.Parallel()
		r := async.NewRunner(async.WithLogger(logger.Discard()))
		r.Go(context.Background(), "boom", func(context.Context) error { panic("boom") })
		assert.NoError(t, r.Wait(context.Background()))
	})

	t.Run("wait honours deadline", func(t *testing.T) {
		t.Parallel()
		r := async.NewRunner(async.WithLogger(logger.Discard()))
		release := make(chan struct{})
		r.Go(context.Background(), "slow", func(context.Context) error {
			<-release
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, r.Wait(ctx), async.ErrTimeout)
		close(release)
	})
}

func TestFuture(t *testing.T) {
	t.Parallel()

	double := func(_ context.Context, n int) (int, error) { return n * 2, nil }
	fail := func(_ context.Context, _ int) (int, error) { return 0, errors.New("fail") }

	res, err := async.WaitAll(
		async.Async(context.Background(), 1, double),
		async.Async(context.Background(), 2, double),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, res)

	_, err = async.Async(context.Background(), 1, fail).AwaitWithTimeout(time.Second)
	assert.EqualError(t, err, "fail")
}

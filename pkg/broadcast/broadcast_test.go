package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/broadcast"
)

func receive[T any](t *testing.T, s *broadcast.Subscription[T]) T {
	t.Helper()
	select {
	case msg, ok := <-s.C():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

func TestBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("fan out", func(t *testing.T) {
		t.Parallel()
		b := broadcast.New[string]()
		s1, err := b.Subscribe(context.Background())
		require.NoError(t, err)
		s2, err := b.Subscribe(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, b.Publish("hello"))
		assert.Equal(t, "hello", receive(t, s1))
		assert.Equal(t, "hello", receive(t, s2))
	})

	t.Run("slow subscriber drops", func(t *testing.T) {
		t.Parallel()
		dropped := 0
		b := broadcast.New(broadcast.WithBuffer[int](1), broadcast.WithDropHandler(func(int) { dropped++ }))
		_, err := b.Subscribe(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, b.Publish(1))
		assert.Equal(t, 0, b.Publish(2))
		assert.Equal(t, 1, dropped)
	})

	t.Run("context cancellation detaches", func(t *testing.T) {
		t.Parallel()
		b := broadcast.New[int]()
		ctx, cancel := context.WithCancel(context.Background())
		s, err := b.Subscribe(ctx)
		require.NoError(t, err)

		cancel()
		assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
		_, ok := <-s.C()
		assert.False(t, ok)
	})

	t.Run("closed broadcaster", func(t *testing.T) {
		t.Parallel()
		b := broadcast.New[int]()
		s, err := b.Subscribe(context.Background())
		require.NoError(t, err)
		b.Close()
		s.Close()

		_, err = b.Subscribe(context.Background())
		assert.ErrorIs(t, err, broadcast.ErrClosed)
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := broadcast.NewRegistry[string, string]()
	assert.Equal(t, 0, r.Publish("nobody", "lost"))

	s, err := r.Subscribe(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Subscribers("user-1"))

	assert.Equal(t, 1, r.Publish("user-1", "event"))
	assert.Equal(t, "event", receive(t, s))
	assert.Equal(t, 0, r.Publish("user-2", "event"))

	assert.Equal(t, 0, r.Sweep())
	s.Close()
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 0, r.Len())

	r.Close()
	_, err = r.Subscribe(context.Background(), "user-1")
	assert.ErrorIs(t, err, broadcast.ErrClosed)
}

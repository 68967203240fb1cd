package broadcast

import (
	"context"
	"sync"
)

// Subscription is one receiver attached to a Broadcaster.
type Subscription[T any] struct {
	ch     chan T
	once   sync.Once
	cancel func()
}

// C returns the channel messages arrive on. It is closed when the
// subscription ends.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() { s.cancel() }

// Broadcaster delivers messages to all current subscribers.
type Broadcaster[T any] struct {
	mu      sync.RWMutex
	subs    map[*Subscription[T]]struct{}
	buffer  int
	closed  bool
	dropped func(T)
}

// Option configures a Broadcaster.
type Option[T any] func(*Broadcaster[T])

// WithBuffer sets each subscriber's channel capacity. Minimum 1, default 16.
func WithBuffer[T any](n int) Option[T] {
	return func(b *Broadcaster[T]) { b.buffer = max(n, 1) }
}

// WithDropHandler is called for every message a full subscriber missed.
func WithDropHandler[T any](fn func(T)) Option[T] {
	return func(b *Broadcaster[T]) { b.dropped = fn }
}

// New creates a Broadcaster.
func New[T any](opts ...Option[T]) *Broadcaster[T] {
	b := &Broadcaster[T]{subs: make(map[*Subscription[T]]struct{}), buffer: 16}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe attaches a subscriber that lives until ctx is done or Close is called.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &Subscription[T]{ch: make(chan T, b.buffer)}
	stop := context.AfterFunc(ctx, func() { b.detach(s) })
	s.cancel = func() {
		stop()
		b.detach(s)
	}
	b.subs[s] = struct{}{}
	return s, nil
}

// Publish sends msg to every subscriber and returns how many received it.
func (b *Broadcaster[T]) Publish(msg T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for s := range b.subs {
		select {
		case s.ch <- msg:
			delivered++
		default:
			if b.dropped != nil {
				b.dropped(msg)
			}
		}
	}
	return delivered
}

// Len returns the number of attached subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close detaches every subscriber. Later Subscribe calls fail with ErrClosed.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.once.Do(func() { close(s.ch) })
	}
	clear(b.subs)
}

func (b *Broadcaster[T]) detach(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
	}
	s.once.Do(func() { close(s.ch) })
}

package broadcast

import (
	"context"
	"sync"
)

// Registry maps keys to lazily created broadcasters.
type Registry[K comparable, T any] struct {
	mu     sync.Mutex
	topics map[K]*Broadcaster[T]
	opts   []Option[T]
	closed bool
}

// NewRegistry creates a Registry. opts are applied to every broadcaster it creates.
func NewRegistry[K comparable, T any](opts ...Option[T]) *Registry[K, T] {
	return &Registry[K, T]{topics: make(map[K]*Broadcaster[T]), opts: opts}
}

// Subscribe attaches a subscriber to key's broadcaster, creating it if needed.
func (r *Registry[K, T]) Subscribe(ctx context.Context, key K) (*Subscription[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	b, ok := r.topics[key]
	if !ok {
		b = New(r.opts...)
		r.topics[key] = b
	}
	return b.Subscribe(ctx)
}

// Publish sends msg to key's subscribers. Keys with no broadcaster deliver to nobody.
func (r *Registry[K, T]) Publish(key K, msg T) int {
	r.mu.Lock()
	b, ok := r.topics[key]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return b.Publish(msg)
}

// Subscribers returns how many subscribers key currently has.
func (r *Registry[K, T]) Subscribers(key K) int {
	r.mu.Lock()
	b, ok := r.topics[key]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return b.Len()
}

// Sweep closes and forgets broadcasters without subscribers. It returns the
// number of keys removed.
func (r *Registry[K, T]) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, b := range r.topics {
		if b.Len() == 0 {
			b.Close()
			delete(r.topics, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of keys with a broadcaster.
func (r *Registry[K, T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

// Close closes every broadcaster.
func (r *Registry[K, T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for k, b := range r.topics {
		b.Close()
		delete(r.topics, k)
	}
}

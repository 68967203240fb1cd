package billing

import (
	"context"
	"sync"
)

// Transactor runs fn atomically. Implementations join an outer transaction
// already present in ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemoryTransactor backs the in-memory stores. It serializes transactions and
// replays the undo journal recorded through OnRollback when fn fails.
type MemoryTransactor struct {
	mu sync.Mutex
}

// NewMemoryTransactor creates a MemoryTransactor.
func NewMemoryTransactor() *MemoryTransactor { return &MemoryTransactor{} }

type journalKey struct{}

type journal struct {
	undo []func()
}

func (t *MemoryTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

// OnRollback registers undo to run if the memory transaction in ctx fails.
// Outside a memory transaction it does nothing.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

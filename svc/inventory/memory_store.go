package inventory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

type memoryStore struct {
	mu         sync.RWMutex
	owners     sync.Map // owner id -> *sync.Mutex
	properties map[string]*Property
	rooms      map[string]*Room
	beds       map[string]*Bed
}

// NewMemoryStore returns a Store kept in process memory.
func NewMemoryStore() Store {
	return &memoryStore{
		properties: make(map[string]*Property),
		rooms:      make(map[string]*Room),
		beds:       make(map[string]*Bed),
	}
}

func (m *memoryStore) Locked(ctx context.Context, ownerID string, fn func(ctx context.Context, w Writer) error) error {
	l, _ := m.owners.LoadOrStore(ownerID, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	w := &memoryWriter{store: m}
	if err := fn(ctx, w); err != nil {
		w.rollback()
		return err
	}
	return nil
}

func (m *memoryStore) Usage(_ context.Context, ownerID string) (Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var u Usage
	for _, p := range m.properties {
		if p.OwnerID == ownerID {
			u.Properties++
		}
	}
	for _, r := range m.rooms {
		if r.OwnerID == ownerID && r.Status == StatusActive {
			u.Rooms++
		}
	}
	for _, b := range m.beds {
		if b.OwnerID == ownerID && b.Status == StatusActive {
			u.Beds++
		}
	}
	return u, nil
}

func (m *memoryStore) Property(_ context.Context, id string) (*Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok {
		return nil, ErrPropertyNotFound
	}
	c := *p
	return &c, nil
}

func (m *memoryStore) Properties(_ context.Context, ownerID string) ([]*Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Property
	for _, p := range m.properties {
		if p.OwnerID == ownerID {
			c := *p
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *Property) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (m *memoryStore) Rooms(_ context.Context, propertyID string) ([]*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Room
	for _, r := range m.rooms {
		if r.PropertyID == propertyID {
			c := *r
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *Room) int {
		if c := cmp.Compare(a.Floor, b.Floor); c != 0 {
			return c
		}
		return cmp.Compare(a.RoomNumber, b.RoomNumber)
	})
	return out, nil
}

type memoryWriter struct {
	store *memoryStore
	undo  []func()
}

func (w *memoryWriter) Usage(ctx context.Context, ownerID string) (Usage, error) {
	return w.store.Usage(ctx, ownerID)
}

func (w *memoryWriter) Property(ctx context.Context, id string) (*Property, error) {
	return w.store.Property(ctx, id)
}

func (w *memoryWriter) InsertProperty(_ context.Context, p *Property) error {
	m := w.store
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.properties {
		if other.OwnerID == p.OwnerID && strings.EqualFold(other.Name, p.Name) {
			return ErrDuplicateProperty
		}
	}
	c := *p
	m.properties[p.ID] = &c
	w.undo = append(w.undo, func() { delete(m.properties, p.ID) })
	return nil
}

func (w *memoryWriter) InsertRoom(_ context.Context, r *Room, beds []*Bed) (Outcome, error) {
	m := w.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.properties[r.PropertyID]; !ok {
		return Created, ErrPropertyNotFound
	}
	for _, other := range m.rooms {
		if other.PropertyID == r.PropertyID && other.Floor == r.Floor && other.RoomNumber == r.RoomNumber {
			return Duplicate, nil
		}
	}

	c := *r
	m.rooms[r.ID] = &c
	ids := make([]string, 0, len(beds))
	for _, b := range beds {
		bc := *b
		m.beds[b.ID] = &bc
		ids = append(ids, b.ID)
	}
	w.undo = append(w.undo, func() {
		delete(m.rooms, r.ID)
		for _, id := range ids {
			delete(m.beds, id)
		}
	})
	return Created, nil
}

func (w *memoryWriter) rollback() {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	for i := len(w.undo) - 1; i >= 0; i-- {
		w.undo[i]()
	}
}

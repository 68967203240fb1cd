package plan

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

type memoryStore struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

// NewMemoryStore returns a Store kept in process memory. Writes made inside a
// billing.MemoryTransactor are undone when the transaction fails.
func NewMemoryStore() Store {
	return &memoryStore{plans: make(map[string]*Plan)}
}

func (s *memoryStore) Get(_ context.Context, id string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return p.Clone(), nil
}

func (s *memoryStore) GetByName(_ context.Context, name string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		if strings.EqualFold(p.Name, name) {
			return p.Clone(), nil
		}
	}
	return nil, ErrPlanNotFound
}

func (s *memoryStore) List(_ context.Context) ([]*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *Plan) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *memoryStore) Insert(ctx context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[p.ID]; ok {
		return ErrDuplicateName
	}
	for _, existing := range s.plans {
		if strings.EqualFold(existing.Name, p.Name) {
			return ErrDuplicateName
		}
	}
	s.plans[p.ID] = p.Clone()
	billing.OnRollback(ctx, func() { s.restore(p.ID, nil) })
	return nil
}

func (s *memoryStore) Update(ctx context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.plans[p.ID]
	if !ok {
		return ErrPlanNotFound
	}
	if cur.Version != p.Version {
		return ErrVersionConflict
	}
	for id, existing := range s.plans {
		if id != p.ID && strings.EqualFold(existing.Name, p.Name) {
			return ErrDuplicateName
		}
	}
	p.Version++
	s.plans[p.ID] = p.Clone()
	billing.OnRollback(ctx, func() { s.restore(p.ID, cur) })
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.plans[id]
	if !ok {
		return ErrPlanNotFound
	}
	delete(s.plans, id)
	billing.OnRollback(ctx, func() { s.restore(id, cur) })
	return nil
}

func (s *memoryStore) AddSubscribers(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.plans[id]
	if !ok {
		return ErrPlanNotFound
	}
	next := cur.Clone()
	next.SubscriberCount = max(0, cur.SubscriberCount+delta)
	s.plans[id] = next
	billing.OnRollback(ctx, func() { s.restore(id, cur) })
	return nil
}

func (s *memoryStore) restore(id string, p *Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p == nil {
		delete(s.plans, id)
		return
	}
	s.plans[id] = p
}

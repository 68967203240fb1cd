package subscription

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

type memoryStore struct {
	mu       sync.RWMutex
	subs     map[string]*Subscription
	payments map[PaymentKey]string
}

// NewMemoryStore returns a Store kept in process memory. Pair it with
// billing.MemoryTransactor to get rollback on failed transactions.
func NewMemoryStore() Store {
	return &memoryStore{
		subs:     make(map[string]*Subscription),
		payments: make(map[PaymentKey]string),
	}
}

func (m *memoryStore) Get(_ context.Context, id string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return s.Clone(), nil
}

func (m *memoryStore) Live(_ context.Context, userID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.subs {
		if s.UserID == userID && s.Live {
			return s.Clone(), nil
		}
	}
	return nil, ErrNoLiveSubscription
}

func (m *memoryStore) History(_ context.Context, userID string) ([]*Subscription, error) {
	subs := m.filter(func(s *Subscription) bool { return s.UserID == userID })
	slices.SortFunc(subs, func(a, b *Subscription) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return subs, nil
}

func (m *memoryStore) HasTrial(_ context.Context, userID string) (bool, error) {
	return len(m.filter(func(s *Subscription) bool {
		return s.UserID == userID && s.BillingCycle == CycleTrial
	})) > 0, nil
}

func (m *memoryStore) Insert(ctx context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[s.ID]; ok {
		return ErrLiveExists.Withf("subscription %s already exists", s.ID)
	}
	if s.Live {
		for _, other := range m.subs {
			if other.UserID == s.UserID && other.Live {
				return ErrLiveExists
			}
		}
	}
	m.subs[s.ID] = s.Clone()
	billing.OnRollback(ctx, func() { m.restore(s.ID, nil) })
	return nil
}

func (m *memoryStore) Update(ctx context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.subs[s.ID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if cur.Version != s.Version {
		return ErrVersionConflict
	}
	if s.Live && !cur.Live {
		for id, other := range m.subs {
			if id != s.ID && other.UserID == s.UserID && other.Live {
				return ErrLiveExists
			}
		}
	}
	s.Version++
	m.subs[s.ID] = s.Clone()
	billing.OnRollback(ctx, func() { m.restore(s.ID, cur) })
	return nil
}

func (m *memoryStore) DueForRenewal(_ context.Context, t time.Time) ([]*Subscription, error) {
	return m.filter(func(s *Subscription) bool {
		return s.Live && s.Status == StatusActive && s.AutoRenew && !s.EndDate.After(t)
	}), nil
}

func (m *memoryStore) Expired(_ context.Context, t time.Time) ([]*Subscription, error) {
	return m.filter(func(s *Subscription) bool {
		return s.Status == StatusActive && s.EndDate.Before(t)
	}), nil
}

func (m *memoryStore) TrialsEndingBefore(_ context.Context, t time.Time) ([]*Subscription, error) {
	return m.filter(func(s *Subscription) bool {
		return s.Status == StatusTrial && s.TrialEndDate != nil && !s.TrialEndDate.After(t)
	}), nil
}

func (m *memoryStore) ClaimPayment(ctx context.Context, key PaymentKey, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[key]; ok {
		return ErrDuplicatePayment
	}
	m.payments[key] = subscriptionID
	billing.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.payments, key)
	})
	return nil
}

func (m *memoryStore) filter(keep func(*Subscription) bool) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Subscription
	for _, s := range m.subs {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Subscription) int { return a.EndDate.Compare(b.EndDate) })
	return out
}

func (m *memoryStore) restore(id string, s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s == nil {
		delete(m.subs, id)
		return
	}
	m.subs[id] = s
}

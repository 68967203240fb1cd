package subscription

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/hostelkit/pkg/lock"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// Engine runs the subscription lifecycle. Every mutation for a user holds
// that user's lock and runs in one store transaction, so concurrent requests
// and webhook retries never leave two live records behind.
type Engine struct {
	store   Store
	catalog *plan.Catalog
	tx      billing.Transactor
	locker  lock.Locker
	pub     notify.Publisher
	cfg     Config
	now     billing.Clock
	metrics *Metrics
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker sets the per-user locker. Multi-instance deployments need a
// shared one such as lock.RedisLocker.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithPublisher sets where lifecycle events go.
func WithPublisher(p notify.Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock overrides the time source.
func WithClock(now billing.Clock) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics sets the collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an Engine. store, catalog and tx are required.
func NewEngine(store Store, catalog *plan.Catalog, tx billing.Transactor, opts ...Option) *Engine {
	if store == nil {
		panic("subscription: Store is required")
	}
	if catalog == nil {
		panic("subscription: plan.Catalog is required")
	}
	if tx == nil {
		panic("subscription: billing.Transactor is required")
	}

	e := &Engine{
		store:   store,
		catalog: catalog,
		tx:      tx,
		locker:  lock.NewMemoryLocker(),
		pub:     notify.Nop,
		cfg:     DefaultConfig(),
		now:     billing.SystemClock,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

func lockKey(userID string) string { return "billing:user:" + userID }

// exclusive runs fn under the user's lock inside a store transaction.
// fn may run more than once if the transaction is retried, so it must build
// its results from scratch on every call.
func (e *Engine) exclusive(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	return lock.WithLock(ctx, e.locker, lockKey(userID), e.cfg.LockTTL, func(ctx context.Context) error {
		return e.tx.WithTx(ctx, fn)
	})
}

func (e *Engine) emit(ctx context.Context, userID string, p notify.Payload) {
	notify.Send(ctx, e.pub, e.log, userID, p)
}

func (e *Engine) emitUpdated(ctx context.Context, s *Subscription) {
	e.emit(ctx, s.UserID, notify.SubscriptionUpdated{
		SubscriptionID: s.ID,
		PlanID:         s.PlanID,
		PlanName:       s.Plan.Name,
		Status:         string(s.Status),
		EndDate:        s.EndDate.Format("2006-01-02"),
	})
}

// transition moves s through the lifecycle table and stamps the change.
func (e *Engine) transition(ctx context.Context, s *Subscription, ev Event) error {
	to, err := next(ctx, s.Status, ev)
	if err != nil {
		return err
	}
	s.setStatus(to, e.now())
	e.metrics.transition(to)
	return nil
}

// retire closes a live record with ev and releases its plan seat.
func (e *Engine) retire(ctx context.Context, s *Subscription, ev Event, reason string) error {
	if err := e.transition(ctx, s, ev); err != nil {
		return err
	}
	if ev != EventExpire {
		s.cancel(reason, e.now())
	}
	s.AutoRenew = false
	if err := e.store.Update(ctx, s); err != nil {
		return err
	}
	return e.catalog.AdjustSubscribers(ctx, s.PlanID, -1)
}

package plan

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/pkg/cache"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// Catalog is the plan catalog service: it owns plan definitions, pricing and
// visibility rules.
type Catalog struct {
	store     Store
	cache     *cache.LRU[string, *Plan]
	formatter *Formatter
	now       billing.Clock
	log       *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache sets the plan cache size and entry lifetime.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(c *Catalog) {
		c.cache = cache.NewLRU[string, *Plan](capacity, cache.WithTTL(ttl))
	}
}

// WithFormatter sets the formatter used for cost display strings.
func WithFormatter(f *Formatter) Option {
	return func(c *Catalog) { c.formatter = f }
}

// WithClock overrides the time source.
func WithClock(now billing.Clock) Option {
	return func(c *Catalog) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// NewCatalog creates a Catalog backed by store.
func NewCatalog(store Store, opts ...Option) *Catalog {
	c := &Catalog{
		store:     store,
		cache:     cache.NewLRU[string, *Plan](256, cache.WithTTL(time.Minute)),
		formatter: defaultFormatter,
		now:       billing.SystemClock,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the plan with id.
func (c *Catalog) Get(ctx context.Context, id string) (*Plan, error) {
	if p, ok := c.cache.Get(id); ok {
		return p.Clone(), nil
	}
	p, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Put(id, p.Clone())
	return p, nil
}

// GetByName returns the plan named name, case-insensitively.
func (c *Catalog) GetByName(ctx context.Context, name string) (*Plan, error) {
	return c.store.GetByName(ctx, name)
}

// List returns every plan, archived ones included.
func (c *Catalog) List(ctx context.Context) ([]*Plan, error) {
	return c.store.List(ctx)
}

// Create validates and stores a new plan.
func (c *Catalog) Create(ctx context.Context, p Plan) (*Plan, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := c.checkSystemPlan(ctx, &p); err != nil {
		return nil, err
	}

	now := c.now()
	p.ID = uuid.NewString()
	p.SubscriberCount = 0
	p.UpgradeRequests = nil
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := c.store.Insert(ctx, &p); err != nil {
		return nil, err
	}
	c.log.InfoContext(ctx, "plan created", logger.PlanID(p.ID), slog.String("name", p.Name), slog.String("kind", string(p.Kind)))
	return p.Clone(), nil
}

// Update replaces the commercial terms of plan id with those of input.
// Counters, upgrade requests and identity are kept.
func (c *Catalog) Update(ctx context.Context, id string, input Plan) (*Plan, error) {
	return c.mutate(ctx, id, func(p *Plan) error {
		input.ID = p.ID
		input.SubscriberCount = p.SubscriberCount
		input.UpgradeRequests = p.UpgradeRequests
		input.Version = p.Version
		input.CreatedAt = p.CreatedAt
		input.Normalize()
		if err := input.Validate(); err != nil {
			return err
		}
		if err := c.checkSystemPlan(ctx, &input); err != nil {
			return err
		}
		*p = input
		return nil
	})
}

// Retire removes a plan from sale. Plans with subscribers are archived so
// existing subscriptions keep resolving; unused plans are deleted.
func (c *Catalog) Retire(ctx context.Context, id string) (archived bool, err error) {
	p, err := c.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	defer c.cache.Remove(id)

	if p.SubscriberCount > 0 {
		p.Status = StatusArchived
		p.UpdatedAt = c.now()
		if err := c.store.Update(ctx, p); err != nil {
			return false, err
		}
		c.log.InfoContext(ctx, "plan archived", logger.PlanID(id), logger.Count("subscribers", p.SubscriberCount))
		return true, nil
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return false, err
	}
	c.log.InfoContext(ctx, "plan deleted", logger.PlanID(id))
	return false, nil
}

// AdjustSubscribers changes the subscriber counter of plan id by delta.
func (c *Catalog) AdjustSubscribers(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	defer c.cache.Remove(id)
	billing.OnRollback(ctx, func() { c.cache.Remove(id) })
	return c.store.AddSubscribers(ctx, id, delta)
}

// TrialPlan returns the active trial plan.
func (c *Catalog) TrialPlan(ctx context.Context) (*Plan, error) {
	return c.systemPlan(ctx, KindTrial)
}

// LimitedPlan returns the active fallback plan users land on after a trial.
func (c *Catalog) LimitedPlan(ctx context.Context) (*Plan, error) {
	return c.systemPlan(ctx, KindLimited)
}

func (c *Catalog) systemPlan(ctx context.Context, kind Kind) (*Plan, error) {
	plans, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if p.Kind == kind && p.Sellable() {
			return p, nil
		}
	}
	return nil, ErrPlanUnavailable.Withf("no active %s plan is configured", kind)
}

// checkSystemPlan keeps at most one active trial and one active limited plan.
func (c *Catalog) checkSystemPlan(ctx context.Context, p *Plan) error {
	if p.Kind == KindStandard || !p.Sellable() {
		return nil
	}
	existing, err := c.systemPlan(ctx, p.Kind)
	switch {
	case errors.Is(err, ErrPlanUnavailable):
		return nil
	case err != nil:
		return err
	case existing.ID == p.ID:
		return nil
	}
	return ErrInvalidPlan.Wrap(validator.Errors{{
		Field:   "kind",
		Message: "another active " + string(p.Kind) + " plan exists",
		Tag:     "unique",
	}})
}

// VisiblePlans lists the plans v may choose from. Operators see every
// non-archived plan. Everyone else sees active global plans and the active
// custom plans assigned to them. The trial plan comes first, once.
func (c *Catalog) VisiblePlans(ctx context.Context, v Viewer) ([]*Plan, error) {
	plans, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var trial *Plan
	paid := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		switch {
		case v.IsAdmin() && p.Status == StatusArchived:
			continue
		case !v.IsAdmin() && (!p.Sellable() || !p.VisibleTo(v)):
			continue
		case p.Kind == KindTrial:
			if trial == nil || (p.Sellable() && !trial.Sellable()) {
				trial = p
			}
			continue
		}
		paid = append(paid, p)
	}

	slices.SortStableFunc(paid, func(a, b *Plan) int {
		if r := cmp.Compare(rank(b), rank(a)); r != 0 {
			return r
		}
		return a.BasePrice.Cmp(b.BasePrice)
	})

	if trial == nil {
		return paid, nil
	}
	return append([]*Plan{trial}, paid...), nil
}

func rank(p *Plan) int {
	r := 0
	if p.IsRecommended {
		r += 2
	}
	if p.IsPopular {
		r++
	}
	return r
}

// Cost prices plan planID for beds and branches, formatted with the
// catalog's formatter.
func (c *Catalog) Cost(ctx context.Context, planID string, beds, branches int) (CostBreakdown, error) {
	p, err := c.Get(ctx, planID)
	if err != nil {
		return CostBreakdown{}, err
	}
	if p.Status == StatusArchived {
		return CostBreakdown{}, ErrPlanUnavailable
	}
	b, err := CalculateCost(p, beds, branches)
	if err != nil {
		return CostBreakdown{}, err
	}
	c.formatter.Describe(&b)
	return b, nil
}

// RequestUpgrade files a capacity upgrade request against a custom plan.
// A requester may hold one pending request per plan.
func (c *Catalog) RequestUpgrade(ctx context.Context, params UpgradeParams) (*UpgradeRequest, error) {
	if err := validator.Apply(
		validator.Required("requester_id", params.RequesterID),
		validator.Min("requested_beds", params.Beds, 1),
		validator.Min("requested_branches", params.Branches, 1),
		validator.MaxLen("message", params.Message, 1000),
	); err != nil {
		return nil, ErrInvalidPlan.Withf("invalid upgrade request").Wrap(err)
	}

	var req UpgradeRequest
	_, err := c.mutate(ctx, params.PlanID, func(p *Plan) error {
		var err error
		req, err = p.addUpgradeRequest(params, c.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.InfoContext(ctx, "upgrade requested", logger.PlanID(params.PlanID), logger.UserID(params.RequesterID))
	return &req, nil
}

// RespondToUpgrade approves or rejects a pending upgrade request. Approval
// raises the plan's bed cap and branch allowance to the requested values.
func (c *Catalog) RespondToUpgrade(ctx context.Context, params ResponseParams) (*UpgradeRequest, *Plan, error) {
	var req UpgradeRequest
	p, err := c.mutate(ctx, params.PlanID, func(p *Plan) error {
		var err error
		req, err = p.resolveUpgradeRequest(params, c.now())
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	c.log.InfoContext(ctx, "upgrade request resolved",
		logger.PlanID(params.PlanID),
		slog.String("upgrade_request_id", params.RequestID),
		slog.String("status", string(req.Status)),
	)
	return &req, p, nil
}

// mutate applies fn to the current plan and stores it, retrying a few times
// on concurrent modification.
func (c *Catalog) mutate(ctx context.Context, id string, fn func(p *Plan) error) (*Plan, error) {
	defer c.cache.Remove(id)

	const attempts = 3
	var err error
	for range attempts {
		var p *Plan
		p, err = c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err = fn(p); err != nil {
			return nil, err
		}
		p.UpdatedAt = c.now()
		if err = c.store.Update(ctx, p); err == nil {
			return p.Clone(), nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, err
}

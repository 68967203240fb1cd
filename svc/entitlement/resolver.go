package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
	"github.com/dmitrymomot/hostelkit/svc/plan"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// Subscriptions is the part of the lifecycle engine the resolver reads.
type Subscriptions interface {
	CurrentSubscription(ctx context.Context, userID string) (*subscription.Subscription, error)
	HasEverSubscribed(ctx context.Context, userID string) (bool, error)
	ActivateFreeTrial(ctx context.Context, userID string) (*subscription.Subscription, error)
}

// Counter counts an owner's live resources. inventory.Store and
// inventory.Writer both implement it, so a check can read counts inside the
// transaction that will insert.
type Counter interface {
	Usage(ctx context.Context, ownerID string) (inventory.Usage, error)
}

// Delta is the amount of each resource a request adds.
type Delta struct {
	Rooms    int
	Beds     int
	Branches int
}

func (d Delta) valid() bool {
	return d.Rooms >= 0 && d.Beds >= 0 && d.Branches >= 0 && d.Rooms+d.Beds+d.Branches > 0
}

// Resolver decides whether an owner may create resources right now.
type Resolver struct {
	subs      Subscriptions
	inventory inventory.Store
	cfg       Config
	now       billing.Clock
	log       *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(r *Resolver) { r.cfg = cfg }
}

// WithClock overrides the time source.
func WithClock(now billing.Clock) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates a Resolver.
func NewResolver(subs Subscriptions, inv inventory.Store, opts ...Option) *Resolver {
	if subs == nil {
		panic("entitlement: Subscriptions is required")
	}
	if inv == nil {
		panic("entitlement: inventory.Store is required")
	}
	r := &Resolver{
		subs:      subs,
		inventory: inv,
		cfg:       DefaultConfig(),
		now:       billing.SystemClock,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscription returns the owner's live subscription. An owner who never
// subscribed gets a free trial when auto-provisioning is on. Owners whose
// subscription lapsed get subscription.ErrNoLiveSubscription.
func (r *Resolver) Subscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	sub, err := r.subs.CurrentSubscription(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, subscription.ErrNoLiveSubscription) {
		return nil, unavailable(err)
	}
	if !r.cfg.AutoProvisionTrial {
		return nil, err
	}

	ever, herr := r.subs.HasEverSubscribed(ctx, userID)
	if herr != nil {
		return nil, unavailable(herr)
	}
	if ever {
		return nil, err
	}

	sub, terr := r.subs.ActivateFreeTrial(ctx, userID)
	switch {
	case terr == nil:
		r.log.InfoContext(ctx, "free trial provisioned on first use", logger.UserID(userID), logger.SubscriptionID(sub.ID))
		return sub, nil
	case errors.Is(terr, subscription.ErrAlreadySubscribed):
		sub, err = r.subs.CurrentSubscription(ctx, userID)
		if err != nil {
			return nil, unavailable(err)
		}
		return sub, nil
	case errors.Is(terr, subscription.ErrTrialAlreadyUsed):
		return nil, err
	default:
		return nil, unavailable(terr)
	}
}

func unavailable(err error) error {
	if billing.IsTransient(err) {
		return ErrUsageUnavailable.Wrap(err)
	}
	return err
}

// Usage returns the owner's live usage against every ceiling.
func (r *Resolver) Usage(ctx context.Context, userID string) (Snapshot, error) {
	sub, err := r.Subscription(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(ctx, userID, sub, r.inventory)
}

func (r *Resolver) snapshot(ctx context.Context, userID string, sub *subscription.Subscription, c Counter) (Snapshot, error) {
	u, err := c.Usage(ctx, userID)
	if err != nil {
		return Snapshot{}, ErrUsageUnavailable.Wrap(err)
	}
	return Snapshot{
		SubscriptionID: sub.ID,
		PlanName:       sub.Plan.Name,
		Status:         string(sub.Status),
		DaysRemaining:  sub.DaysRemaining(r.now()),
		Rooms:          newLimit(u.Rooms, r.roomCeiling(sub)),
		Beds:           newLimit(u.Beds, r.bedCeiling(sub)),
		Branches:       newLimit(u.Properties, branchCeiling(sub)),
	}, nil
}

// bedCeiling falls back from the contract to the plan to the default.
func (r *Resolver) bedCeiling(sub *subscription.Subscription) int {
	switch {
	case sub.BedCount > 0:
		return sub.BedCount
	case sub.Plan.MaxBeds != nil && *sub.Plan.MaxBeds > 0:
		return *sub.Plan.MaxBeds
	case sub.Plan.BaseBedCount > 0:
		return sub.Plan.BaseBedCount
	default:
		return r.cfg.DefaultBedCeiling
	}
}

// roomCeiling is the rooms module usage limit, else one room per bed.
func (r *Resolver) roomCeiling(sub *subscription.Subscription) int {
	if limit, ok := sub.Plan.Modules.Limit(plan.ModuleRooms); ok {
		return limit
	}
	return r.bedCeiling(sub)
}

func branchCeiling(sub *subscription.Subscription) int {
	switch {
	case sub.BranchCount > 0:
		return sub.BranchCount
	case sub.Plan.BranchCount > 0:
		return sub.Plan.BranchCount
	default:
		return 1
	}
}

// Evaluate checks d against the owner's ceilings with counts read from c.
func (r *Resolver) Evaluate(ctx context.Context, userID string, c Counter, d Delta) (Verdict, error) {
	if !d.valid() {
		return Verdict{}, ErrInvalidRequest.Withf("requested amounts must be positive")
	}

	sub, err := r.Subscription(ctx, userID)
	if errors.Is(err, subscription.ErrNoLiveSubscription) {
		return Verdict{
			Resource:        primary(d),
			Reason:          "no active subscription",
			RequiresUpgrade: true,
		}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	snap, err := r.snapshot(ctx, userID, sub, c)
	if err != nil {
		return Verdict{}, err
	}
	v := snap.verdict(primary(d))

	if d.Branches > 0 && !moduleOpen(sub.Plan, plan.ModuleProperties) {
		return deny(v, ResourceBranches, "plan does not include the properties module"), nil
	}
	if (d.Rooms > 0 || d.Beds > 0) && !moduleOpen(sub.Plan, plan.ModuleRooms) {
		return deny(v, primary(d), "plan does not include the rooms module"), nil
	}

	for _, check := range []struct {
		res   Resource
		add   int
		limit Limit
	}{
		{ResourceBranches, d.Branches, snap.Branches},
		{ResourceRooms, d.Rooms, snap.Rooms},
		{ResourceBeds, d.Beds, snap.Beds},
	} {
		if check.add > 0 && check.add > check.limit.Remaining {
			return deny(v, check.res, fmt.Sprintf("adding %d %s exceeds the plan limit of %d (%d in use)",
				check.add, check.res, check.limit.Max, check.limit.Current)), nil
		}
	}
	return v, nil
}

// moduleOpen treats a plan without a module grid as unrestricted.
func moduleOpen(p subscription.PlanSnapshot, m plan.Module) bool {
	return len(p.Modules) == 0 || p.HasModule(m)
}

func deny(v Verdict, res Resource, reason string) Verdict {
	v.Allowed = false
	v.Resource = res
	v.Reason = reason
	v.RequiresUpgrade = true
	return v
}

func primary(d Delta) Resource {
	switch {
	case d.Beds > 0:
		return ResourceBeds
	case d.Rooms > 0:
		return ResourceRooms
	default:
		return ResourceBranches
	}
}

// checkProperty ensures propertyID belongs to userID.
func (r *Resolver) checkProperty(ctx context.Context, userID, propertyID string) error {
	p, err := r.inventory.Property(ctx, propertyID)
	if err != nil {
		return unavailable(err)
	}
	if p.OwnerID != userID {
		return inventory.ErrPropertyForbidden
	}
	return nil
}

// CanAddRooms checks whether the owner of propertyID may add rooms.
func (r *Resolver) CanAddRooms(ctx context.Context, userID, propertyID string, rooms int) (Verdict, error) {
	if err := r.checkProperty(ctx, userID, propertyID); err != nil {
		return Verdict{}, err
	}
	return r.Evaluate(ctx, userID, r.inventory, Delta{Rooms: rooms})
}

// CanAddBeds checks whether the owner of propertyID may add beds.
func (r *Resolver) CanAddBeds(ctx context.Context, userID, propertyID string, beds int) (Verdict, error) {
	if err := r.checkProperty(ctx, userID, propertyID); err != nil {
		return Verdict{}, err
	}
	return r.Evaluate(ctx, userID, r.inventory, Delta{Beds: beds})
}

// CanAddBranch checks whether the owner may open another property.
func (r *Resolver) CanAddBranch(ctx context.Context, userID string) (Verdict, error) {
	return r.Evaluate(ctx, userID, r.inventory, Delta{Branches: 1})
}

// UserHasModule reports whether the owner's live plan enables m. Owners
// without a live subscription have no modules.
func (r *Resolver) UserHasModule(ctx context.Context, userID string, m plan.Module) (bool, error) {
	sub, err := r.Subscription(ctx, userID)
	if errors.Is(err, subscription.ErrNoLiveSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return HasModule(sub.Plan, m), nil
}

// UserHasFeature reports whether the owner's live plan includes f.
func (r *Resolver) UserHasFeature(ctx context.Context, userID string, f plan.Feature) (bool, error) {
	sub, err := r.Subscription(ctx, userID)
	if errors.Is(err, subscription.ErrNoLiveSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return HasFeature(sub.Plan, f), nil
}

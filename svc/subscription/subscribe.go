package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// Cancellation reasons written by the engine.
const (
	ReasonSuperseded = "superseded"
	ReasonUpgrade    = "superseded by upgrade"
	ReasonDowngrade  = "superseded by downgrade"
	ReasonTrialEnded = "trial ended"
	ReasonPeriodEnd  = "billing period ended"
)

// SubscribeParams describes a new subscription. Zero Beds and Branches take
// the plan's included capacity; an empty Cycle takes the plan's cycle.
type SubscribeParams struct {
	UserID   string
	PlanID   string
	Cycle    Cycle
	Beds     int
	Branches int
}

// ChangeParams describes a plan change for a user with a live subscription.
// An empty Cycle keeps the current one; trials move to monthly.
type ChangeParams struct {
	UserID   string
	PlanID   string
	Beds     int
	Branches int
	Cycle    Cycle
}

// SubscribeUser starts a subscription on a plan. Any live record is closed
// first. Payment is collected separately; paid records start with a pending
// payment status.
func (e *Engine) SubscribeUser(ctx context.Context, params SubscribeParams) (*Subscription, error) {
	if err := validator.Apply(
		validator.Required("user_id", params.UserID),
		validator.Required("plan_id", params.PlanID),
		validator.When(params.Cycle != "", validator.OneOf("billing_cycle", params.Cycle, CycleTrial, CycleMonthly, CycleAnnual)),
		validator.Min("bed_count", params.Beds, 0),
		validator.Min("branch_count", params.Branches, 0),
	); err != nil {
		return nil, ErrInvalidRequest.Wrap(err)
	}

	var sub *Subscription
	err := e.exclusive(ctx, params.UserID, func(ctx context.Context) error {
		var err error
		sub, err = e.subscribe(ctx, params, ReasonSuperseded)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "user subscribed",
		logger.UserID(sub.UserID),
		logger.SubscriptionID(sub.ID),
		logger.PlanID(sub.PlanID),
	)
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// subscribe must run inside exclusive.
func (e *Engine) subscribe(ctx context.Context, params SubscribeParams, reason string) (*Subscription, error) {
	p, err := e.catalog.Get(ctx, params.PlanID)
	if err != nil {
		return nil, err
	}

	sub, err := e.open(p, params)
	if err != nil {
		return nil, err
	}

	live, err := e.store.Live(ctx, params.UserID)
	switch {
	case errors.Is(err, ErrNoLiveSubscription):
	case err != nil:
		return nil, err
	default:
		sub.PreviousSubscriptionID = live.ID
		if err := e.retire(ctx, live, EventCancel, reason); err != nil {
			return nil, err
		}
	}
	if err := e.store.Insert(ctx, sub); err != nil {
		return nil, err
	}
	if err := e.catalog.AdjustSubscribers(ctx, p.ID, 1); err != nil {
		return nil, err
	}
	return sub, nil
}

// open builds a new record for p without storing it.
func (e *Engine) open(p *plan.Plan, params SubscribeParams) (*Subscription, error) {
	if !p.Sellable() {
		return nil, plan.ErrPlanUnavailable.Withf("plan %q is not available", p.Name)
	}

	cycle := params.Cycle
	switch {
	case p.Kind == plan.KindTrial:
		cycle = CycleTrial
	case cycle == CycleTrial:
		return nil, ErrInvalidRequest.Withf("plan %q does not offer a trial", p.Name)
	case cycle == "":
		cycle = Cycle(p.BillingCycle)
	}

	beds, branches := params.Beds, params.Branches
	if beds == 0 {
		beds = p.BaseBedCount
	}
	if branches == 0 {
		branches = 1
	}

	now := e.now()
	sub := &Subscription{
		ID:            uuid.NewString(),
		UserID:        params.UserID,
		PlanID:        p.ID,
		Plan:          Snapshot(p),
		BillingCycle:  cycle,
		StartDate:     now,
		BedCount:      beds,
		BranchCount:   branches,
		TotalPrice:    billing.NewMoney(0, p.BasePrice.Currency),
		PaymentStatus: PaymentCompleted,
		Payments:      []PaymentEvent{},
		AutoRenew:     e.cfg.AutoRenew,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if cycle == CycleTrial {
		days := p.TrialPeriodDays
		if days <= 0 {
			days = e.cfg.DefaultTrialDays
		}
		end := now.Add(time.Duration(days) * billing.Day)
		sub.EndDate = end
		sub.TrialEndDate = &end
		sub.BedCount = p.BaseBedCount
		sub.BranchCount = max(p.BranchCount, 1)
		sub.AutoRenew = false
		sub.setStatus(StatusTrial, now)
		return sub, nil
	}

	priced := *p
	priced.BillingCycle = plan.Cycle(cycle)
	if cycle == CycleMonthly {
		priced.AnnualDiscount = 0
	}
	cost, err := plan.CalculateCost(&priced, beds, branches)
	if err != nil {
		return nil, err
	}
	sub.TotalPrice = cost.PeriodTotal
	sub.EndDate = cycle.Advance(now)
	if !cost.PeriodTotal.IsZero() {
		sub.PaymentStatus = PaymentPending
	}
	sub.setStatus(StatusActive, now)
	return sub, nil
}

// ActivateFreeTrial puts a user on the trial plan. A user with a live record
// gets an *AlreadySubscribedError; a user who ever held a trial gets
// ErrTrialAlreadyUsed.
func (e *Engine) ActivateFreeTrial(ctx context.Context, userID string) (*Subscription, error) {
	if userID == "" {
		return nil, ErrInvalidRequest.Wrap(validator.Apply(validator.Required("user_id", userID)))
	}

	var sub *Subscription
	err := e.exclusive(ctx, userID, func(ctx context.Context) error {
		sub = nil
		live, err := e.store.Live(ctx, userID)
		switch {
		case errors.Is(err, ErrNoLiveSubscription):
		case err != nil:
			return err
		default:
			return &AlreadySubscribedError{
				SubscriptionID: live.ID,
				Status:         live.Status,
				DaysRemaining:  live.DaysRemaining(e.now()),
			}
		}

		used, err := e.store.HasTrial(ctx, userID)
		if err != nil {
			return err
		}
		if used {
			return ErrTrialAlreadyUsed
		}

		trial, err := e.catalog.TrialPlan(ctx)
		if err != nil {
			return err
		}
		sub, err = e.subscribe(ctx, SubscribeParams{UserID: userID, PlanID: trial.ID, Cycle: CycleTrial}, ReasonSuperseded)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "free trial activated", logger.UserID(userID), logger.SubscriptionID(sub.ID))
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// ChangeUserSubscription moves a user with a live record to another plan or
// capacity. The old record is marked upgraded or downgraded by monthly price
// (a trial is cancelled) and the new one links back to it. Both writes share
// one transaction.
func (e *Engine) ChangeUserSubscription(ctx context.Context, params ChangeParams) (*Subscription, error) {
	if err := validator.Apply(
		validator.Required("user_id", params.UserID),
		validator.Required("plan_id", params.PlanID),
		validator.When(params.Cycle != "", validator.OneOf("billing_cycle", params.Cycle, CycleMonthly, CycleAnnual)),
		validator.Min("bed_count", params.Beds, 0),
		validator.Min("branch_count", params.Branches, 0),
	); err != nil {
		return nil, ErrInvalidRequest.Wrap(err)
	}

	var sub, old *Subscription
	err := e.exclusive(ctx, params.UserID, func(ctx context.Context) error {
		var err error
		sub, old, err = e.change(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "subscription changed",
		logger.UserID(params.UserID),
		logger.SubscriptionID(sub.ID),
		logger.PlanID(sub.PlanID),
		"previous_status", old.Status,
	)
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// change must run inside exclusive.
func (e *Engine) change(ctx context.Context, params ChangeParams) (*Subscription, *Subscription, error) {
	old, err := e.store.Live(ctx, params.UserID)
	if err != nil {
		return nil, nil, err
	}

	p, err := e.catalog.Get(ctx, params.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if p.Kind == plan.KindTrial {
		return nil, nil, ErrInvalidRequest.Withf("cannot change to a trial plan")
	}

	cycle := params.Cycle
	if cycle == "" {
		cycle = old.BillingCycle
	}
	if cycle == CycleTrial {
		cycle = CycleMonthly
	}
	sub, err := e.open(p, SubscribeParams{
		UserID:   params.UserID,
		PlanID:   p.ID,
		Cycle:    cycle,
		Beds:     params.Beds,
		Branches: params.Branches,
	})
	if err != nil {
		return nil, nil, err
	}
	if old.PlanID == sub.PlanID && old.BedCount == sub.BedCount && old.BranchCount == sub.BranchCount && old.BillingCycle == sub.BillingCycle {
		return nil, nil, ErrInvalidRequest.Withf("subscription already has these terms")
	}

	ev, reason := EventCancel, ReasonSuperseded
	switch {
	case old.IsTrial():
	case sub.MonthlyPrice().Cmp(old.MonthlyPrice()) >= 0:
		ev, reason = EventUpgrade, ReasonUpgrade
	default:
		ev, reason = EventDowngrade, ReasonDowngrade
	}
	if err := e.retire(ctx, old, ev, reason); err != nil {
		return nil, nil, err
	}

	sub.PreviousSubscriptionID = old.ID
	sub.Usage = old.Usage
	clampUsage(sub)
	if err := e.store.Insert(ctx, sub); err != nil {
		return nil, nil, err
	}
	if err := e.catalog.AdjustSubscribers(ctx, sub.PlanID, 1); err != nil {
		return nil, nil, err
	}
	return sub, old, nil
}

// CancelUserSubscription cancels the user's live record.
func (e *Engine) CancelUserSubscription(ctx context.Context, userID, reason string) (*Subscription, error) {
	if reason == "" {
		reason = "cancelled by user"
	}

	var sub *Subscription
	err := e.exclusive(ctx, userID, func(ctx context.Context) error {
		var err error
		sub, err = e.store.Live(ctx, userID)
		if err != nil {
			return err
		}
		return e.retire(ctx, sub, EventCancel, reason)
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "subscription cancelled", logger.UserID(userID), logger.SubscriptionID(sub.ID))
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// ExtendSubscription pushes the end of a live record by days, and its trial
// end when it has one.
func (e *Engine) ExtendSubscription(ctx context.Context, subscriptionID string, days int) (*Subscription, error) {
	if err := validator.Apply(validator.Range("days", days, 1, 3650)); err != nil {
		return nil, ErrInvalidRequest.Wrap(err)
	}

	target, err := e.store.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	var sub *Subscription
	err = e.exclusive(ctx, target.UserID, func(ctx context.Context) error {
		var err error
		sub, err = e.store.Get(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if !sub.Live {
			return ErrInvalidTransition.Withf("cannot extend a subscription in status %s", sub.Status)
		}
		by := time.Duration(days) * billing.Day
		sub.EndDate = sub.EndDate.Add(by)
		if sub.TrialEndDate != nil {
			end := sub.TrialEndDate.Add(by)
			sub.TrialEndDate = &end
		}
		sub.UpdatedAt = e.now()
		return e.store.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "subscription extended", logger.SubscriptionID(sub.ID), "days", days)
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// AdjustContract resizes the user's live record on planID after an approved
// capacity upgrade. The price is recomputed from the current plan terms.
func (e *Engine) AdjustContract(ctx context.Context, userID, planID string, beds, branches int) (*Subscription, error) {
	var sub *Subscription
	err := e.exclusive(ctx, userID, func(ctx context.Context) error {
		var err error
		sub, err = e.store.Live(ctx, userID)
		if err != nil {
			return err
		}
		if sub.PlanID != planID {
			return ErrInvalidRequest.Withf("live subscription is not on plan %s", planID)
		}
		p, err := e.catalog.Get(ctx, planID)
		if err != nil {
			return err
		}
		if err := e.resize(sub, p, beds, branches); err != nil {
			return err
		}
		return e.store.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "subscription contract adjusted", logger.SubscriptionID(sub.ID), "beds", beds, "branches", branches)
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// RespondToUpgrade resolves a capacity upgrade request. On approval the
// requester's live subscription on that plan is resized to the approved beds
// and branches in the same transaction.
func (e *Engine) RespondToUpgrade(ctx context.Context, params plan.ResponseParams) (*plan.UpgradeRequest, *plan.Plan, error) {
	current, err := e.catalog.Get(ctx, params.PlanID)
	if err != nil {
		return nil, nil, err
	}
	pending, ok := current.UpgradeRequest(params.RequestID)
	if !ok {
		return nil, nil, plan.ErrUpgradeRequestNotFound
	}

	var (
		req *plan.UpgradeRequest
		p   *plan.Plan
		sub *Subscription
	)
	err = e.exclusive(ctx, pending.RequesterID, func(ctx context.Context) error {
		var err error
		req, p, err = e.catalog.RespondToUpgrade(ctx, params)
		if err != nil || req.Status != plan.UpgradeApproved {
			return err
		}
		live, err := e.store.Live(ctx, req.RequesterID)
		switch {
		case errors.Is(err, ErrNoLiveSubscription):
			return nil
		case err != nil:
			return err
		case live.PlanID != p.ID:
			return nil
		}
		if err := e.resize(live, p, req.RequestedBeds, req.RequestedBranches); err != nil {
			return err
		}
		if err := e.store.Update(ctx, live); err != nil {
			return err
		}
		sub = live
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if sub != nil {
		e.log.InfoContext(ctx, "subscription contract adjusted",
			logger.SubscriptionID(sub.ID), "beds", sub.BedCount, "branches", sub.BranchCount)
		e.emitUpdated(ctx, sub)
	}
	return req, p, nil
}

// resize applies new capacity to sub using p's current terms.
func (e *Engine) resize(sub *Subscription, p *plan.Plan, beds, branches int) error {
	sub.Plan = Snapshot(p)
	if sub.IsTrial() {
		sub.BedCount, sub.BranchCount = beds, branches
		sub.UpdatedAt = e.now()
		return nil
	}

	priced := *p
	priced.BillingCycle = plan.Cycle(sub.BillingCycle)
	if sub.BillingCycle == CycleMonthly {
		priced.AnnualDiscount = 0
	}
	cost, err := plan.CalculateCost(&priced, beds, branches)
	if err != nil {
		return err
	}
	sub.BedCount, sub.BranchCount = beds, branches
	sub.TotalPrice = cost.PeriodTotal
	sub.UpdatedAt = e.now()
	return nil
}

// RefreshUsage stores the latest counted usage on the live record. Values
// are clamped to the contract.
func (e *Engine) RefreshUsage(ctx context.Context, userID string, usage Usage) error {
	return e.exclusive(ctx, userID, func(ctx context.Context) error {
		sub, err := e.store.Live(ctx, userID)
		if err != nil {
			return err
		}
		usage.RefreshedAt = e.now()
		sub.Usage = usage
		clampUsage(sub)
		return e.store.Update(ctx, sub)
	})
}

func clampUsage(s *Subscription) {
	s.Usage.Beds = min(max(s.Usage.Beds, 0), s.BedCount)
	s.Usage.Branches = min(max(s.Usage.Branches, 0), s.BranchCount)
	s.Usage.Rooms = min(max(s.Usage.Rooms, 0), s.BedCount)
}

// SetAutoRenew toggles renewal of the user's live record. Trials never renew.
func (e *Engine) SetAutoRenew(ctx context.Context, userID string, enabled bool) (*Subscription, error) {
	var sub *Subscription
	err := e.exclusive(ctx, userID, func(ctx context.Context) error {
		var err error
		sub, err = e.store.Live(ctx, userID)
		if err != nil {
			return err
		}
		if sub.IsTrial() && enabled {
			return ErrInvalidRequest.Withf("trials do not renew")
		}
		sub.AutoRenew = enabled
		sub.UpdatedAt = e.now()
		return e.store.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CurrentSubscription returns the user's live record.
func (e *Engine) CurrentSubscription(ctx context.Context, userID string) (*Subscription, error) {
	return e.store.Live(ctx, userID)
}

// History lists the user's records, newest first.
func (e *Engine) History(ctx context.Context, userID string) ([]*Subscription, error) {
	return e.store.History(ctx, userID)
}

// Get returns a record by id.
func (e *Engine) Get(ctx context.Context, id string) (*Subscription, error) {
	return e.store.Get(ctx, id)
}

// HasEverSubscribed reports whether the user holds or held any record.
func (e *Engine) HasEverSubscribed(ctx context.Context, userID string) (bool, error) {
	subs, err := e.store.History(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(subs) > 0, nil
}

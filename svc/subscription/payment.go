package subscription

import (
	"context"
	"errors"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// PaymentAction says what a captured payment did to the user's subscription.
type PaymentAction string

const (
	ActionSubscribed PaymentAction = "subscribed"
	ActionChanged    PaymentAction = "changed"
	ActionCompleted  PaymentAction = "completed"
	ActionRenewed    PaymentAction = "renewed"
	ActionAddon      PaymentAction = "addon"
	ActionDuplicate  PaymentAction = "duplicate"
)

// PaymentApplication is a captured gateway payment to apply. Positive
// AddBeds or AddBranches make it a capacity add-on for the live record;
// otherwise PlanID, Beds, Branches and Cycle describe the purchased terms.
type PaymentApplication struct {
	UserID      string
	Gateway     string
	OrderID     string
	PaymentID   string
	Amount      billing.Money
	Method      string
	PlanID      string
	Beds        int
	Branches    int
	Cycle       Cycle
	AddBeds     int
	AddBranches int
}

// Key returns the idempotency key of the payment.
func (a PaymentApplication) Key() PaymentKey {
	return PaymentKey{OrderID: a.OrderID, PaymentID: a.PaymentID}
}

func (a PaymentApplication) addon() bool { return a.AddBeds > 0 || a.AddBranches > 0 }

func (a PaymentApplication) validate() error {
	return validator.Apply(
		validator.Required("user_id", a.UserID),
		validator.Required("gateway", a.Gateway),
		validator.Required("order_id", a.OrderID),
		validator.Required("payment_id", a.PaymentID),
		validator.When(!a.addon(), validator.Required("plan_id", a.PlanID)),
		validator.When(a.Cycle != "", validator.OneOf("billing_cycle", a.Cycle, CycleMonthly, CycleAnnual)),
		validator.Min("bed_count", a.Beds, 0),
		validator.Min("branch_count", a.Branches, 0),
		validator.Min("add_beds", a.AddBeds, 0),
		validator.Min("add_branches", a.AddBranches, 0),
		validator.Min("amount", a.Amount.Amount, 0),
	)
}

// PaymentResult reports the record a payment landed on. Duplicate is set
// when the key was applied before; nothing changed in that case.
type PaymentResult struct {
	Subscription *Subscription
	Action       PaymentAction
	Duplicate    bool
}

// ApplyPayment applies a captured payment exactly once per (order, payment)
// pair. Under the user's lock and one transaction it claims the key,
// subscribes, changes, completes or renews the live record as the payment
// describes and appends a paid PaymentEvent.
func (e *Engine) ApplyPayment(ctx context.Context, app PaymentApplication) (PaymentResult, error) {
	if err := app.validate(); err != nil {
		return PaymentResult{}, ErrInvalidRequest.Wrap(err)
	}

	var res PaymentResult
	err := e.exclusive(ctx, app.UserID, func(ctx context.Context) error {
		res = PaymentResult{}
		live, err := e.store.Live(ctx, app.UserID)
		if err != nil && !errors.Is(err, ErrNoLiveSubscription) {
			return err
		}

		var claimID string
		if live != nil {
			claimID = live.ID
		}
		if err := e.store.ClaimPayment(ctx, app.Key(), claimID); err != nil {
			return err
		}

		sub, action, err := e.applyTerms(ctx, live, app)
		if err != nil {
			return err
		}
		p := sub.Plan
		sub.Payments = append(sub.Payments, PaymentEvent{
			Gateway:      app.Gateway,
			OrderID:      app.OrderID,
			PaymentID:    app.PaymentID,
			Amount:       app.Amount,
			Status:       PaymentEventPaid,
			Method:       app.Method,
			BillingCycle: sub.BillingCycle,
			PlanID:       p.ID,
			PlanName:     p.Name,
			BedCount:     sub.BedCount,
			BranchCount:  sub.BranchCount,
			RecordedAt:   e.now(),
		})
		sub.PaymentStatus = PaymentCompleted
		sub.UpdatedAt = e.now()
		if err := e.store.Update(ctx, sub); err != nil {
			return err
		}
		res = PaymentResult{Subscription: sub, Action: action}
		return nil
	})

	if errors.Is(err, ErrDuplicatePayment) {
		e.log.InfoContext(ctx, "payment already applied",
			logger.UserID(app.UserID),
			logger.OrderID(app.OrderID),
			logger.PaymentID(app.PaymentID),
		)
		live, lerr := e.store.Live(ctx, app.UserID)
		if lerr != nil && !errors.Is(lerr, ErrNoLiveSubscription) {
			return PaymentResult{}, lerr
		}
		return PaymentResult{Subscription: live, Action: ActionDuplicate, Duplicate: true}, nil
	}
	if err != nil {
		return PaymentResult{}, err
	}

	if !res.Subscription.TotalPrice.IsZero() && app.Amount.Cmp(res.Subscription.TotalPrice) < 0 && res.Action != ActionAddon {
		e.log.WarnContext(ctx, "payment below contracted price",
			logger.SubscriptionID(res.Subscription.ID),
			logger.PaymentID(app.PaymentID),
			"amount", app.Amount.String(),
			"price", res.Subscription.TotalPrice.String(),
		)
	}
	e.log.InfoContext(ctx, "payment applied",
		logger.UserID(app.UserID),
		logger.SubscriptionID(res.Subscription.ID),
		logger.Gateway(app.Gateway),
		logger.PaymentID(app.PaymentID),
		"action", res.Action,
	)
	e.emitUpdated(ctx, res.Subscription)
	return res, nil
}

// applyTerms must run inside exclusive. The returned record is stored and
// carries its current version.
func (e *Engine) applyTerms(ctx context.Context, live *Subscription, app PaymentApplication) (*Subscription, PaymentAction, error) {
	if app.addon() {
		if live == nil {
			return nil, "", ErrNoLiveSubscription
		}
		p, err := e.catalog.Get(ctx, live.PlanID)
		if err != nil {
			return nil, "", err
		}
		if err := e.resize(live, p, live.BedCount+app.AddBeds, live.BranchCount+app.AddBranches); err != nil {
			return nil, "", err
		}
		return live, ActionAddon, nil
	}

	if live != nil && live.Status == StatusActive && sameTerms(live, app) {
		if live.PaymentStatus != PaymentCompleted {
			return live, ActionCompleted, nil
		}
		live.EndDate = live.BillingCycle.Advance(live.EndDate)
		live.RenewalCount++
		return live, ActionRenewed, nil
	}

	if live != nil {
		sub, _, err := e.change(ctx, ChangeParams{
			UserID:   app.UserID,
			PlanID:   app.PlanID,
			Beds:     app.Beds,
			Branches: app.Branches,
			Cycle:    app.Cycle,
		})
		if err != nil {
			return nil, "", err
		}
		return sub, ActionChanged, nil
	}

	sub, err := e.subscribe(ctx, SubscribeParams{
		UserID:   app.UserID,
		PlanID:   app.PlanID,
		Cycle:    app.Cycle,
		Beds:     app.Beds,
		Branches: app.Branches,
	}, ReasonSuperseded)
	if err != nil {
		return nil, "", err
	}
	return sub, ActionSubscribed, nil
}

func sameTerms(s *Subscription, app PaymentApplication) bool {
	if s.PlanID != app.PlanID {
		return false
	}
	if app.Cycle != "" && app.Cycle != s.BillingCycle {
		return false
	}
	if app.Beds != 0 && app.Beds != s.BedCount {
		return false
	}
	return app.Branches == 0 || app.Branches == s.BranchCount
}

// RecordPaymentFailure appends a failed payment attempt to the user's live
// record. The status of the record does not change; a pending first payment
// becomes failed. Replays of the same attempt are ignored.
func (e *Engine) RecordPaymentFailure(ctx context.Context, userID string, ev PaymentEvent) (*Subscription, error) {
	var sub *Subscription
	err := e.exclusive(ctx, userID, func(ctx context.Context) error {
		var err error
		sub, err = e.store.Live(ctx, userID)
		if err != nil {
			return err
		}
		if sub.hasPayment(ev.OrderID, ev.PaymentID, PaymentEventFailed) {
			return nil
		}
		ev.Status = PaymentEventFailed
		if ev.RecordedAt.IsZero() {
			ev.RecordedAt = e.now()
		}
		if ev.PlanID == "" {
			ev.PlanID, ev.PlanName = sub.PlanID, sub.Plan.Name
			ev.BedCount, ev.BranchCount = sub.BedCount, sub.BranchCount
			ev.BillingCycle = sub.BillingCycle
		}
		sub.Payments = append(sub.Payments, ev)
		if sub.PaymentStatus == PaymentPending {
			sub.PaymentStatus = PaymentFailed
		}
		sub.UpdatedAt = e.now()
		return e.store.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	e.log.WarnContext(ctx, "payment failed",
		logger.UserID(userID),
		logger.SubscriptionID(sub.ID),
		logger.OrderID(ev.OrderID),
		logger.PaymentID(ev.PaymentID),
		"reason", ev.Reason,
	)
	return sub, nil
}

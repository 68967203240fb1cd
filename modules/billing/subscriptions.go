package billing

import (
	"github.com/dmitrymomot/hostelkit/handler"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

func (m *Module) currentSubscription(ctx handler.Context, _ struct{}) handler.Response {
	sub, err := m.engine.CurrentSubscription(ctx, viewer(ctx).UserID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(sub)
}

func (m *Module) subscriptionHistory(ctx handler.Context, _ struct{}) handler.Response {
	history, err := m.engine.History(ctx, viewer(ctx).UserID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(history)
}

func (m *Module) subscriptionUsage(ctx handler.Context, _ struct{}) handler.Response {
	usage, err := m.resolver.Usage(ctx, viewer(ctx).UserID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(usage)
}

// PlanSelection picks a plan, cycle and capacity.
type PlanSelection struct {
	PlanID       string             `json:"planId"`
	BillingCycle subscription.Cycle `json:"billingCycle"`
	BedCount     int                `json:"bedCount"`
	BranchCount  int                `json:"branchCount"`
}

func (m *Module) subscribe(ctx handler.Context, req PlanSelection) handler.Response {
	v := viewer(ctx)
	if err := m.visible(ctx, v, req.PlanID); err != nil {
		return m.fail(ctx, err)
	}
	sub, err := m.engine.SubscribeUser(ctx, subscription.SubscribeParams{
		UserID:   v.UserID,
		PlanID:   req.PlanID,
		Cycle:    req.BillingCycle,
		Beds:     req.BedCount,
		Branches: req.BranchCount,
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	return created(sub)
}

func (m *Module) activateTrial(ctx handler.Context, _ struct{}) handler.Response {
	sub, err := m.engine.ActivateFreeTrial(ctx, viewer(ctx).UserID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return created(sub)
}

func (m *Module) changeSubscription(ctx handler.Context, req PlanSelection) handler.Response {
	v := viewer(ctx)
	if err := m.visible(ctx, v, req.PlanID); err != nil {
		return m.fail(ctx, err)
	}
	sub, err := m.engine.ChangeUserSubscription(ctx, subscription.ChangeParams{
		UserID:   v.UserID,
		PlanID:   req.PlanID,
		Beds:     req.BedCount,
		Branches: req.BranchCount,
		Cycle:    req.BillingCycle,
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(sub)
}

// CancelRequest cancels the caller's live subscription.
type CancelRequest struct {
	Reason string `json:"reason"`
}

func (m *Module) cancelSubscription(ctx handler.Context, req CancelRequest) handler.Response {
	sub, err := m.engine.CancelUserSubscription(ctx, viewer(ctx).UserID, req.Reason)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(sub, handler.WithJSONMessage("subscription cancelled"))
}

// AutoRenewRequest toggles renewal at period end.
type AutoRenewRequest struct {
	Enabled bool `json:"enabled"`
}

func (m *Module) setAutoRenew(ctx handler.Context, req AutoRenewRequest) handler.Response {
	sub, err := m.engine.SetAutoRenew(ctx, viewer(ctx).UserID, req.Enabled)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(sub)
}

// ExtendRequest pushes a subscription's end date out by Days.
type ExtendRequest struct {
	SubscriptionID string `path:"subscriptionID" json:"-"`
	Days           int    `json:"days"`
}

func (m *Module) extendSubscription(ctx handler.Context, req ExtendRequest) handler.Response {
	sub, err := m.engine.ExtendSubscription(ctx, req.SubscriptionID, req.Days)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(sub)
}

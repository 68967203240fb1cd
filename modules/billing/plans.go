package billing

import (
	"context"

	"github.com/dmitrymomot/hostelkit/handler"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// visible hides plans the viewer may not see behind ErrPlanNotFound.
func (m *Module) visible(ctx context.Context, v plan.Viewer, planID string) error {
	p, err := m.catalog.Get(ctx, planID)
	if err != nil {
		return err
	}
	if !v.IsAdmin() && !p.VisibleTo(v) {
		return plan.ErrPlanNotFound
	}
	return nil
}

func (m *Module) listPlans(ctx handler.Context, _ struct{}) handler.Response {
	v := viewer(ctx)
	plans, err := m.catalog.VisiblePlans(ctx, v)
	if err != nil {
		return m.fail(ctx, err)
	}
	if !v.IsAdmin() {
		plans = publicPlans(plans, v.UserID)
	}
	return handler.JSON(plans)
}

// publicPlans drops subscriber counts and upgrade requests filed by other
// users.
func publicPlans(plans []*plan.Plan, userID string) []*plan.Plan {
	out := make([]*plan.Plan, 0, len(plans))
	for _, p := range plans {
		c := *p
		c.SubscriberCount = 0
		c.UpgradeRequests = nil
		for _, r := range p.UpgradeRequests {
			if r.RequesterID == userID {
				c.UpgradeRequests = append(c.UpgradeRequests, r)
			}
		}
		out = append(out, &c)
	}
	return out
}

// CostRequest prices a plan for a bed and branch count.
type CostRequest struct {
	PlanID      string `path:"planID" json:"-"`
	BedCount    int    `json:"bedCount"`
	BranchCount int    `json:"branchCount"`
}

func (m *Module) planCost(ctx handler.Context, req CostRequest) handler.Response {
	if err := m.visible(ctx, viewer(ctx), req.PlanID); err != nil {
		return m.fail(ctx, err)
	}
	breakdown, err := m.catalog.Cost(ctx, req.PlanID, req.BedCount, req.BranchCount)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(breakdown)
}

// UpgradeRequest asks an operator to raise a custom plan's capacity.
type UpgradeRequest struct {
	PlanID      string `path:"planID" json:"-"`
	BedCount    int    `json:"bedCount"`
	BranchCount int    `json:"branchCount"`
	Message     string `json:"message"`
}

func (m *Module) requestUpgrade(ctx handler.Context, req UpgradeRequest) handler.Response {
	if err := m.visible(ctx, viewer(ctx), req.PlanID); err != nil {
		return m.fail(ctx, err)
	}
	r, err := m.catalog.RequestUpgrade(ctx, plan.UpgradeParams{
		PlanID:      req.PlanID,
		RequesterID: viewer(ctx).UserID,
		Beds:        req.BedCount,
		Branches:    req.BranchCount,
		Message:     req.Message,
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	return created(r)
}

// UpgradeResponse resolves a pending upgrade request.
type UpgradeResponse struct {
	PlanID    string `path:"planID" json:"-"`
	RequestID string `path:"requestID" json:"-"`
	Approve   bool   `json:"approve"`
	Message   string `json:"message"`
}

func (m *Module) respondToUpgrade(ctx handler.Context, req UpgradeResponse) handler.Response {
	r, p, err := m.engine.RespondToUpgrade(ctx, plan.ResponseParams{
		PlanID:      req.PlanID,
		RequestID:   req.RequestID,
		ResponderID: viewer(ctx).UserID,
		Approve:     req.Approve,
		Message:     req.Message,
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"request": r, "plan": p})
}

func (m *Module) createPlan(ctx handler.Context, req plan.Plan) handler.Response {
	p, err := m.catalog.Create(ctx, req)
	if err != nil {
		return m.fail(ctx, err)
	}
	return created(p)
}

// PlanUpdate replaces the commercial terms of a plan.
type PlanUpdate struct {
	PlanID string `path:"planID" json:"-"`
	plan.Plan
}

func (m *Module) updatePlan(ctx handler.Context, req PlanUpdate) handler.Response {
	p, err := m.catalog.Update(ctx, req.PlanID, req.Plan)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(p)
}

// PlanRef addresses a plan by its path id.
type PlanRef struct {
	PlanID string `path:"planID"`
}

// retirePlan archives plans that still have subscribers and deletes the rest.
func (m *Module) retirePlan(ctx handler.Context, req PlanRef) handler.Response {
	archived, err := m.catalog.Retire(ctx, req.PlanID)
	if err != nil {
		return m.fail(ctx, err)
	}
	msg := "plan deleted"
	if archived {
		msg = "plan archived, existing subscribers keep it"
	}
	return handler.JSON(map[string]any{"archived": archived}, handler.WithJSONMessage(msg))
}

package plan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newCatalog(t *testing.T) *plan.Catalog {
	t.Helper()
	return plan.NewCatalog(plan.NewMemoryStore(), plan.WithClock(billing.FixedClock(testNow)))
}

func mustCreate(t *testing.T, c *plan.Catalog, p plan.Plan) *plan.Plan {
	t.Helper()
	created, err := c.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestCatalogCreate(t *testing.T) {
	t.Parallel()

	t.Run("normalizes single-branch plans", func(t *testing.T) {
		t.Parallel()
		c := newCatalog(t)
		p := mustCreate(t, c, plan.Plan{
			Name:          "  Starter ",
			BasePrice:     inr(500),
			BaseBedCount:  10,
			BranchCount:   4,
			CostPerBranch: inr(100),
		})
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Starter", p.Name)
		assert.Equal(t, 1, p.BranchCount)
		assert.True(t, p.CostPerBranch.IsZero())
		assert.Equal(t, plan.StatusActive, p.Status)
		assert.Equal(t, plan.KindStandard, p.Kind)
		assert.Equal(t, int64(1), p.Version)
		assert.Equal(t, testNow, p.CreatedAt)
	})

	t.Run("rejects invalid plans", func(t *testing.T) {
		t.Parallel()
		c := newCatalog(t)
		_, err := c.Create(context.Background(), plan.Plan{
			Name:         "Broken",
			BaseBedCount: 10,
			MaxBeds:      plan.IntPtr(5),
			Modules: plan.Grants{
				plan.ModuleRooms: {Enabled: true, Permissions: map[plan.Submodule]plan.CRUD{plan.SubInvoices: plan.FullAccess()}},
				"spa":            {Enabled: true},
			},
			Features: []plan.Feature{"teleport"},
		})
		require.ErrorIs(t, err, plan.ErrInvalidPlan)
		errs := validator.Extract(err)
		assert.True(t, errs.Has("max_beds"))
		assert.True(t, errs.Has("modules.spa"))
		assert.True(t, errs.Has("modules.rooms.permissions.invoices"))
		assert.True(t, errs.Has("features[0]"))
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		t.Parallel()
		c := newCatalog(t)
		mustCreate(t, c, plan.Plan{Name: "Pro", BaseBedCount: 10})
		_, err := c.Create(context.Background(), plan.Plan{Name: "pro", BaseBedCount: 10})
		assert.ErrorIs(t, err, plan.ErrDuplicateName)
	})

	t.Run("single active trial plan", func(t *testing.T) {
		t.Parallel()
		c := newCatalog(t)
		mustCreate(t, c, plan.Plan{Name: "Trial", Kind: plan.KindTrial, BaseBedCount: 10, TrialPeriodDays: 14})
		_, err := c.Create(context.Background(), plan.Plan{Name: "Trial 2", Kind: plan.KindTrial, BaseBedCount: 10})
		require.ErrorIs(t, err, plan.ErrInvalidPlan)
		assert.Contains(t, validator.Extract(err).Tags(), "unique")
	})
}

func TestCatalogSystemPlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)

	_, err := c.TrialPlan(ctx)
	require.ErrorIs(t, err, plan.ErrPlanUnavailable)

	trial := mustCreate(t, c, plan.Plan{Name: "Trial", Kind: plan.KindTrial, BaseBedCount: 10})
	limited := mustCreate(t, c, plan.Plan{Name: "Limited", Kind: plan.KindLimited, BaseBedCount: 5})

	got, err := c.TrialPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, trial.ID, got.ID)

	got, err = c.LimitedPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, limited.ID, got.ID)
}

func TestCatalogVisiblePlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)

	trial := mustCreate(t, c, plan.Plan{Name: "Trial", Kind: plan.KindTrial, BaseBedCount: 10})
	basic := mustCreate(t, c, plan.Plan{Name: "Basic", BasePrice: inr(500), BaseBedCount: 10})
	pro := mustCreate(t, c, plan.Plan{Name: "Pro", BasePrice: inr(2000), BaseBedCount: 30, IsRecommended: true})
	hidden := mustCreate(t, c, plan.Plan{Name: "Old", BasePrice: inr(100), BaseBedCount: 10, Status: plan.StatusInactive})
	byProperty := mustCreate(t, c, plan.Plan{Name: "Sunrise Custom", BasePrice: inr(900), BaseBedCount: 50, AssignedPropertyID: "prop-1"})
	byDomain := mustCreate(t, c, plan.Plan{Name: "Acme Custom", BasePrice: inr(800), BaseBedCount: 50, AssignedEmailDomain: "@Acme.io"})

	ids := func(plans []*plan.Plan) []string {
		out := make([]string, 0, len(plans))
		for _, p := range plans {
			out = append(out, p.ID)
		}
		return out
	}

	t.Run("owner sees global plans, trial first", func(t *testing.T) {
		t.Parallel()
		plans, err := c.VisiblePlans(ctx, plan.Viewer{UserID: "u1", Email: "owner@example.com"})
		require.NoError(t, err)
		assert.Equal(t, []string{trial.ID, pro.ID, basic.ID}, ids(plans))
	})

	t.Run("custom plans by property and email domain", func(t *testing.T) {
		t.Parallel()
		plans, err := c.VisiblePlans(ctx, plan.Viewer{UserID: "u2", Email: "Owner@ACME.io", PropertyIDs: []string{"prop-1"}})
		require.NoError(t, err)
		got := ids(plans)
		assert.Equal(t, trial.ID, got[0])
		assert.Contains(t, got, byProperty.ID)
		assert.Contains(t, got, byDomain.ID)
		assert.NotContains(t, got, hidden.ID)
	})

	t.Run("admin sees inactive and custom plans", func(t *testing.T) {
		t.Parallel()
		plans, err := c.VisiblePlans(ctx, plan.Viewer{UserID: "ops", Role: plan.RoleAdmin})
		require.NoError(t, err)
		got := ids(plans)
		assert.Len(t, got, 6)
		assert.Equal(t, trial.ID, got[0])
		assert.Contains(t, got, hidden.ID)
	})
}

func TestCatalogRetire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)

	unused := mustCreate(t, c, plan.Plan{Name: "Unused", BaseBedCount: 10})
	archived, err := c.Retire(ctx, unused.ID)
	require.NoError(t, err)
	assert.False(t, archived)
	_, err = c.Get(ctx, unused.ID)
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)

	used := mustCreate(t, c, plan.Plan{Name: "Used", BaseBedCount: 10})
	require.NoError(t, c.AdjustSubscribers(ctx, used.ID, 2))
	archived, err = c.Retire(ctx, used.ID)
	require.NoError(t, err)
	assert.True(t, archived)

	got, err := c.Get(ctx, used.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusArchived, got.Status)
	assert.Equal(t, 2, got.SubscriberCount)

	_, err = c.Cost(ctx, used.ID, 10, 1)
	assert.ErrorIs(t, err, plan.ErrPlanUnavailable)
}

func TestCatalogAdjustSubscribers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)
	p := mustCreate(t, c, plan.Plan{Name: "Basic", BaseBedCount: 10})

	require.NoError(t, c.AdjustSubscribers(ctx, p.ID, 1))
	got, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SubscriberCount)

	require.NoError(t, c.AdjustSubscribers(ctx, p.ID, -5))
	got, err = c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SubscriberCount)

	assert.ErrorIs(t, c.AdjustSubscribers(ctx, "missing", 1), plan.ErrPlanNotFound)
}

func TestCatalogAdjustSubscribersRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)
	p := mustCreate(t, c, plan.Plan{Name: "Basic", BaseBedCount: 10})

	tx := billing.NewMemoryTransactor()
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, c.AdjustSubscribers(ctx, p.ID, 3))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SubscriberCount)
}

func TestCatalogUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)
	p := mustCreate(t, c, plan.Plan{Name: "Basic", BasePrice: inr(500), BaseBedCount: 10})
	require.NoError(t, c.AdjustSubscribers(ctx, p.ID, 4))

	updated, err := c.Update(ctx, p.ID, plan.Plan{Name: "Basic Plus", BasePrice: inr(700), BaseBedCount: 12})
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, "Basic Plus", updated.Name)
	assert.Equal(t, inr(700), updated.BasePrice)
	assert.Equal(t, 4, updated.SubscriberCount)
	assert.Greater(t, updated.Version, p.Version)

	_, err = c.Update(ctx, p.ID, plan.Plan{Name: "", BaseBedCount: 0})
	assert.ErrorIs(t, err, plan.ErrInvalidPlan)
}

func TestCatalogUpgradeRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)

	global := mustCreate(t, c, plan.Plan{Name: "Basic", BaseBedCount: 10})
	custom := mustCreate(t, c, plan.Plan{Name: "Custom", BaseBedCount: 20, MaxBeds: plan.IntPtr(30), AssignedPropertyID: "prop-9"})

	_, err := c.RequestUpgrade(ctx, plan.UpgradeParams{PlanID: global.ID, RequesterID: "u1", Beds: 20, Branches: 1})
	require.ErrorIs(t, err, plan.ErrNotCustomPlan)

	_, err = c.RequestUpgrade(ctx, plan.UpgradeParams{PlanID: custom.ID, RequesterID: "u1", Beds: 0, Branches: 1})
	require.ErrorIs(t, err, plan.ErrInvalidPlan)

	req, err := c.RequestUpgrade(ctx, plan.UpgradeParams{PlanID: custom.ID, RequesterID: "u1", Beds: 60, Branches: 2, Message: "  new\x00 wing  "})
	require.NoError(t, err)
	assert.Equal(t, plan.UpgradePending, req.Status)
	assert.Equal(t, "new wing", req.Message)

	_, err = c.RequestUpgrade(ctx, plan.UpgradeParams{PlanID: custom.ID, RequesterID: "u1", Beds: 70, Branches: 2})
	require.ErrorIs(t, err, plan.ErrUpgradeRequestPending)
	assert.Equal(t, billing.CodeUpgradeRequestConflict, billing.Code(err))

	resolved, updated, err := c.RespondToUpgrade(ctx, plan.ResponseParams{
		PlanID: custom.ID, RequestID: req.ID, ResponderID: "ops", Approve: true, Message: "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, plan.UpgradeApproved, resolved.Status)
	require.NotNil(t, resolved.RespondedAt)
	assert.Equal(t, 60, *updated.MaxBeds)
	assert.True(t, updated.AllowMultipleBranches)
	assert.Equal(t, 2, updated.BranchCount)

	_, _, err = c.RespondToUpgrade(ctx, plan.ResponseParams{PlanID: custom.ID, RequestID: req.ID, ResponderID: "ops"})
	require.ErrorIs(t, err, plan.ErrUpgradeRequestResolved)

	_, _, err = c.RespondToUpgrade(ctx, plan.ResponseParams{PlanID: custom.ID, RequestID: "nope", ResponderID: "ops"})
	require.ErrorIs(t, err, plan.ErrUpgradeRequestNotFound)

	again, err := c.RequestUpgrade(ctx, plan.UpgradeParams{PlanID: custom.ID, RequesterID: "u1", Beds: 80, Branches: 2})
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, again.ID)
}

func TestGrants(t *testing.T) {
	t.Parallel()

	g := plan.Grants{
		plan.ModuleRooms: {
			Enabled:     true,
			UsageLimit:  plan.IntPtr(25),
			Permissions: map[plan.Submodule]plan.CRUD{plan.SubRoomSetup: plan.FullAccess()},
		},
		plan.ModuleRent: {Enabled: false},
	}

	assert.True(t, g.Enabled(plan.ModuleRooms))
	assert.False(t, g.Enabled(plan.ModuleRent))
	assert.True(t, g.Allows(plan.ModuleRooms, plan.SubRoomSetup, plan.ActionDelete))
	assert.True(t, g.Allows(plan.ModuleRooms, plan.SubBedAllocation, plan.ActionRead))
	assert.False(t, g.Allows(plan.ModuleRooms, plan.SubBedAllocation, plan.ActionCreate))
	assert.False(t, g.Allows(plan.ModuleRooms, plan.SubInvoices, plan.ActionRead))
	assert.False(t, g.Allows(plan.ModuleRent, plan.SubInvoices, plan.ActionRead))

	limit, ok := g.Limit(plan.ModuleRooms)
	assert.True(t, ok)
	assert.Equal(t, 25, limit)

	clone := g.Clone()
	*clone[plan.ModuleRooms].UsageLimit = 1
	limit, _ = g.Limit(plan.ModuleRooms)
	assert.Equal(t, 25, limit)

	for _, m := range plan.Modules() {
		assert.NotEmpty(t, plan.Submodules(m), m)
	}
}

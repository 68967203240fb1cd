package plan_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/svc/plan"
)

const seedYAML = `
plans:
  - name: Free Trial
    kind: trial
    trial_period_days: 14
    base_bed_count: 10
    base_price: {amount: 0, currency: INR}
    modules:
      rooms:
        enabled: true
        usage_limit: 5
        permissions:
          room_setup: {create: true, read: true, update: true, delete: false}
  - name: Limited
    kind: limited
    base_bed_count: 5
  - name: Growth
    billing_cycle: annual
    annual_discount: 10
    base_bed_count: 20
    base_price: {amount: 150000, currency: INR}
    top_up_price_per_bed: {amount: 5000, currency: INR}
    max_beds: 100
    allow_multiple_branches: true
    branch_count: 3
    cost_per_branch: {amount: 50000, currency: INR}
    features: [online_payments, data_export]
    is_recommended: true
`

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	plans, err := plan.NewYAMLSource(strings.NewReader(seedYAML)).Load()
	require.NoError(t, err)
	require.Len(t, plans, 4)

	assert.Equal(t, plan.KindTrial, plans[0].Kind)
	limit, ok := plans[0].Modules.Limit(plan.ModuleRooms)
	assert.True(t, ok)
	assert.Equal(t, 5, limit)
	assert.True(t, plans[0].Modules.Allows(plan.ModuleRooms, plan.SubRoomSetup, plan.ActionUpdate))

	assert.Equal(t, 100, *plans[2].MaxBeds)
	assert.True(t, plans[2].HasFeature(plan.FeatureDataExport))

	_, err = plan.NewYAMLSource(strings.NewReader("plans:\n  - name: X\n    colour: red\n")).Load()
	assert.ErrorIs(t, err, plan.ErrInvalidSeed)

	_, err = plan.NewYAMLSource(strings.NewReader("plans: []\n")).Load()
	assert.ErrorIs(t, err, plan.ErrInvalidSeed)
}

func TestCatalogSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCatalog(t)

	plans, err := plan.NewYAMLSource(strings.NewReader(seedYAML)).Load()
	require.NoError(t, err)

	report, err := c.Seed(ctx, plans)
	require.NoError(t, err)
	assert.Len(t, report.Created, 3)
	assert.Empty(t, report.Updated)

	growth, err := c.GetByName(ctx, "growth")
	require.NoError(t, err)
	require.NoError(t, c.AdjustSubscribers(ctx, growth.ID, 3))

	plans[2].BasePrice.Amount = 160000
	report, err = c.Seed(ctx, plans)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Len(t, report.Updated, 3)

	got, err := c.Get(ctx, growth.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(160000), got.BasePrice.Amount)
	assert.Equal(t, 3, got.SubscriberCount)

	trial, err := c.TrialPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, trial.TrialPeriodDays)

	b, err := c.Cost(ctx, growth.ID, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(144000), b.MonthlyTotal.Amount)
	assert.Equal(t, int64(1728000), b.AnnualTotal.Amount)
}

func TestShippedSeedFile(t *testing.T) {
	t.Parallel()

	plans, err := plan.LoadYAMLFile("../../plans.yaml")
	require.NoError(t, err)
	require.Len(t, plans, 4)

	for _, p := range plans {
		p.Normalize()
		assert.NoError(t, p.Validate(), p.Name)
		if p.AllowMultipleBranches {
			assert.Greater(t, p.BranchCount, 1, p.Name)
		}
	}
	assert.Equal(t, plan.KindTrial, plans[0].Kind)
	assert.Equal(t, plan.KindLimited, plans[1].Kind)
}

package plan_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

func inr(amount int64) billing.Money { return billing.NewMoney(amount, "INR") }

func growthPlan() *plan.Plan {
	p := &plan.Plan{
		ID:                    "growth",
		Name:                  "Growth",
		BillingCycle:          plan.CycleMonthly,
		BasePrice:             inr(1000),
		BaseBedCount:          10,
		TopUpPricePerBed:      inr(50),
		MaxBeds:               plan.IntPtr(40),
		AllowMultipleBranches: true,
		BranchCount:           3,
		CostPerBranch:         inr(300),
	}
	p.Normalize()
	return p
}

func TestCalculateCost(t *testing.T) {
	t.Parallel()

	t.Run("base price at included capacity", func(t *testing.T) {
		t.Parallel()
		b, err := plan.CalculateCost(growthPlan(), 10, 1)
		require.NoError(t, err)
		assert.Equal(t, inr(1000), b.Subtotal)
		assert.Equal(t, inr(1000), b.MonthlyTotal)
		assert.Equal(t, inr(1000), b.PeriodTotal)
		assert.Equal(t, inr(12000), b.AnnualTotal)
		assert.True(t, b.MonthlyDiscount.IsZero())
		assert.NotEmpty(t, b.Display.MonthlyTotal)
	})

	t.Run("extra beds and branches", func(t *testing.T) {
		t.Parallel()
		b, err := plan.CalculateCost(growthPlan(), 15, 3)
		require.NoError(t, err)
		assert.Equal(t, 5, b.ExtraBeds)
		assert.Equal(t, inr(250), b.ExtraBedsCost)
		assert.Equal(t, 2, b.ExtraBranches)
		assert.Equal(t, inr(600), b.ExtraBranchesCost)
		assert.Equal(t, inr(1850), b.Subtotal)
	})

	t.Run("annual discount", func(t *testing.T) {
		t.Parallel()
		p := &plan.Plan{
			Name:           "Annual",
			BillingCycle:   plan.CycleAnnual,
			AnnualDiscount: 10,
			BasePrice:      inr(1000),
			BaseBedCount:   10,
		}
		p.Normalize()

		b, err := plan.CalculateCost(p, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, inr(1000), b.Subtotal)
		assert.Equal(t, inr(900), b.MonthlyTotal)
		assert.Equal(t, inr(10800), b.AnnualTotal)
		assert.Equal(t, inr(10800), b.PeriodTotal)
		assert.Equal(t, inr(100), b.MonthlyDiscount)
		assert.Equal(t, inr(1200), b.AnnualDiscount)
		assert.InDelta(t, 10.0, b.DiscountPercent, 0.0001)
	})

	t.Run("monotonic in beds and branches", func(t *testing.T) {
		t.Parallel()
		p := growthPlan()
		prev := int64(-1)
		for beds := p.BaseBedCount; beds <= 40; beds++ {
			for branches := 1; branches <= 3; branches++ {
				b, err := plan.CalculateCost(p, beds, branches)
				require.NoError(t, err)
				if branches == 1 {
					assert.GreaterOrEqual(t, b.Subtotal.Amount, prev)
					prev = b.Subtotal.Amount
				}
				if branches > 1 {
					lower, err := plan.CalculateCost(p, beds, branches-1)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, b.Subtotal.Amount, lower.Subtotal.Amount)
				}
			}
		}
	})
}

func TestCalculateCostValidation(t *testing.T) {
	t.Parallel()

	single := growthPlan()
	single.AllowMultipleBranches = false
	single.Normalize()

	tests := []struct {
		name     string
		plan     *plan.Plan
		beds     int
		branches int
		tag      string
	}{
		{"zero beds", growthPlan(), 0, 1, plan.TagNegativeCount},
		{"negative branches", growthPlan(), 10, -1, plan.TagNegativeCount},
		{"below base beds", growthPlan(), 9, 1, plan.TagBelowBaseBeds},
		{"above cap", growthPlan(), 41, 1, plan.TagAboveMaxBeds},
		{"too many branches", growthPlan(), 10, 4, plan.TagBranchLimitExceeded},
		{"branches on single-branch plan", single, 10, 2, plan.TagBranchesNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := plan.CalculateCost(tt.plan, tt.beds, tt.branches)
			require.Error(t, err)
			assert.True(t, errors.Is(err, plan.ErrInvalidCost))
			assert.ErrorIs(t, err, validator.ErrValidationFailed)
			assert.Equal(t, billing.CodeValidation, billing.Code(err))
			assert.Contains(t, validator.Extract(err).Tags(), tt.tag)
		})
	}
}

func TestFormatter(t *testing.T) {
	t.Parallel()

	f := plan.NewFormatter(plan.DefaultLanguage)
	assert.Contains(t, f.Money(inr(90000)), "900")
	assert.Contains(t, f.Money(billing.Money{Amount: 1250, Currency: "XXZ"}), "12.50 XXZ")
}

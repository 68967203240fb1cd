package plan

import (
	"fmt"

	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// CostBreakdown is the priced result for a bed and branch count. Callers
// display and charge these figures as they are.
type CostBreakdown struct {
	PlanID       string `json:"plan_id"`
	PlanName     string `json:"plan_name"`
	BillingCycle Cycle  `json:"billing_cycle"`
	Beds         int    `json:"beds"`
	Branches     int    `json:"branches"`

	BasePrice         billing.Money `json:"base_price"`
	IncludedBeds      int           `json:"included_beds"`
	ExtraBeds         int           `json:"extra_beds"`
	ExtraBedsCost     billing.Money `json:"extra_beds_cost"`
	ExtraBranches     int           `json:"extra_branches"`
	ExtraBranchesCost billing.Money `json:"extra_branches_cost"`

	// Subtotal is the undiscounted monthly figure.
	Subtotal billing.Money `json:"subtotal"`

	DiscountPercent float64       `json:"discount_percent"`
	MonthlyDiscount billing.Money `json:"monthly_discount"`
	AnnualDiscount  billing.Money `json:"annual_discount"`
	MonthlyTotal    billing.Money `json:"monthly_total"`
	AnnualTotal     billing.Money `json:"annual_total"`

	// PeriodTotal is charged once per billing period.
	PeriodTotal billing.Money `json:"period_total"`

	Display Display `json:"display"`
}

// Display holds the formatted amounts of a breakdown.
type Display struct {
	BasePrice         string `json:"base_price"`
	ExtraBedsCost     string `json:"extra_beds_cost"`
	ExtraBranchesCost string `json:"extra_branches_cost"`
	MonthlyDiscount   string `json:"monthly_discount"`
	MonthlyTotal      string `json:"monthly_total"`
	AnnualTotal       string `json:"annual_total"`
	PeriodTotal       string `json:"period_total"`
}

// CalculateCost prices p for beds and branches. Constraint violations return
// ErrInvalidCost wrapping validator.Errors tagged with the failed constraint.
func CalculateCost(p *Plan, beds, branches int) (CostBreakdown, error) {
	if err := checkCounts(p, beds, branches); err != nil {
		return CostBreakdown{}, ErrInvalidCost.Wrap(err)
	}

	extraBeds := max(0, beds-p.BaseBedCount)
	extraBranches := max(0, branches-1)

	b := CostBreakdown{
		PlanID:            p.ID,
		PlanName:          p.Name,
		BillingCycle:      p.BillingCycle,
		Beds:              beds,
		Branches:          branches,
		BasePrice:         p.BasePrice,
		IncludedBeds:      p.BaseBedCount,
		ExtraBeds:         extraBeds,
		ExtraBedsCost:     p.TopUpPricePerBed.Mul(int64(extraBeds)),
		ExtraBranches:     extraBranches,
		ExtraBranchesCost: p.CostPerBranch.Mul(int64(extraBranches)),
	}
	b.Subtotal = b.BasePrice.Add(b.ExtraBedsCost).Add(b.ExtraBranchesCost)

	if p.BillingCycle == CycleAnnual && p.AnnualDiscount > 0 {
		b.DiscountPercent = p.AnnualDiscount
		b.MonthlyTotal = b.Subtotal.Percent(100 - p.AnnualDiscount)
	} else {
		b.MonthlyTotal = b.Subtotal
	}
	b.MonthlyDiscount = b.Subtotal.Sub(b.MonthlyTotal)
	b.AnnualTotal = b.MonthlyTotal.Mul(12)
	b.AnnualDiscount = b.Subtotal.Mul(12).Sub(b.AnnualTotal)

	if p.BillingCycle == CycleAnnual {
		b.PeriodTotal = b.AnnualTotal
	} else {
		b.PeriodTotal = b.MonthlyTotal
	}

	defaultFormatter.Describe(&b)
	return b, nil
}

func checkCounts(p *Plan, beds, branches int) error {
	if beds < 1 || branches < 1 {
		return validator.Apply(
			validator.Check("bed_count", beds >= 1, TagNegativeCount, "must be at least 1"),
			validator.Check("branch_count", branches >= 1, TagNegativeCount, "must be at least 1"),
		)
	}
	return validator.Apply(
		validator.Check("bed_count", beds >= p.BaseBedCount, TagBelowBaseBeds,
			fmt.Sprintf("must be at least the plan's %d included beds", p.BaseBedCount)),
		validator.When(p.MaxBeds != nil, validator.Check("bed_count", p.MaxBeds != nil && beds <= *p.MaxBeds, TagAboveMaxBeds,
			fmt.Sprintf("must be at most %d", p.BedCeiling()))),
		validator.When(p.AllowMultipleBranches, validator.Check("branch_count", branches <= p.BranchCount, TagBranchLimitExceeded,
			fmt.Sprintf("must be at most %d", p.BranchCount))),
		validator.When(!p.AllowMultipleBranches, validator.Check("branch_count", branches == 1, TagBranchesNotAllowed,
			"plan does not support multiple branches")),
	)
}

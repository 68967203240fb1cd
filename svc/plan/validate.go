package plan

import (
	"fmt"

	"github.com/dmitrymomot/hostelkit/pkg/validator"
)

// Validate checks the plan invariants. Call Normalize first.
func (p *Plan) Validate() error {
	rules := []validator.Rule{
		validator.Required("name", p.Name),
		validator.MaxLen("name", p.Name, 100),
		validator.MaxLen("description", p.Description, 1000),
		validator.OneOf("kind", p.Kind, KindStandard, KindTrial, KindLimited),
		validator.OneOf("status", p.Status, StatusActive, StatusInactive, StatusArchived),
		validator.OneOf("billing_cycle", p.BillingCycle, CycleMonthly, CycleAnnual),
		validator.Range("annual_discount", p.AnnualDiscount, 0, 100),
		validator.Min("base_bed_count", p.BaseBedCount, 1),
		validator.Min("base_price", p.BasePrice.Amount, 0),
		validator.Min("top_up_price_per_bed", p.TopUpPricePerBed.Amount, 0),
		validator.Min("cost_per_branch", p.CostPerBranch.Amount, 0),
		validator.Min("branch_count", p.BranchCount, 1),
		validator.Min("trial_period_days", p.TrialPeriodDays, 0),
	}
	if p.MaxBeds != nil {
		rules = append(rules, validator.Min("max_beds", *p.MaxBeds, p.BaseBedCount))
	}

	for m, grant := range p.Modules {
		field := "modules." + string(m)
		if !m.Valid() {
			rules = append(rules, validator.Check(field, false, "unknown_module", "unknown module"))
			continue
		}
		if grant.UsageLimit != nil {
			rules = append(rules, validator.Min(field+".usage_limit", *grant.UsageLimit, 0))
		}
		for s := range grant.Permissions {
			rules = append(rules, validator.Check(field+".permissions."+string(s), m.Owns(s),
				"unknown_submodule", fmt.Sprintf("is not a submodule of %s", m)))
		}
	}
	for i, f := range p.Features {
		rules = append(rules, validator.Check(fmt.Sprintf("features[%d]", i), f.Valid(), "unknown_feature", "unknown feature"))
	}

	if err := validator.Apply(rules...); err != nil {
		return ErrInvalidPlan.Wrap(err)
	}
	return nil
}

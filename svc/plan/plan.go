package plan

import (
	"slices"
	"time"

	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// Kind separates ordinary plans from the two system plans the lifecycle
// engine looks up by role.
type Kind string

const (
	KindStandard Kind = "standard"
	KindTrial    Kind = "trial"
	KindLimited  Kind = "limited"
)

// Cycle is the billing period a plan is sold on.
type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleAnnual  Cycle = "annual"
)

// Status controls whether a plan can be sold.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusArchived Status = "archived"
)

// Plan is a sellable bundle of bed capacity, branches, modules and features.
type Plan struct {
	ID          string `json:"id" bson:"_id" yaml:"id,omitempty"`
	Name        string `json:"name" bson:"name" yaml:"name"`
	Description string `json:"description" bson:"description" yaml:"description"`
	Kind        Kind   `json:"kind" bson:"kind" yaml:"kind"`
	Status      Status `json:"status" bson:"status" yaml:"status"`

	BillingCycle   Cycle         `json:"billing_cycle" bson:"billing_cycle" yaml:"billing_cycle"`
	AnnualDiscount float64       `json:"annual_discount" bson:"annual_discount" yaml:"annual_discount"`
	BasePrice      billing.Money `json:"base_price" bson:"base_price" yaml:"base_price"`

	BaseBedCount     int           `json:"base_bed_count" bson:"base_bed_count" yaml:"base_bed_count"`
	TopUpPricePerBed billing.Money `json:"top_up_price_per_bed" bson:"top_up_price_per_bed" yaml:"top_up_price_per_bed"`
	MaxBeds          *int          `json:"max_beds,omitempty" bson:"max_beds,omitempty" yaml:"max_beds,omitempty"`

	AllowMultipleBranches bool          `json:"allow_multiple_branches" bson:"allow_multiple_branches" yaml:"allow_multiple_branches"`
	BranchCount           int           `json:"branch_count" bson:"branch_count" yaml:"branch_count"`
	CostPerBranch         billing.Money `json:"cost_per_branch" bson:"cost_per_branch" yaml:"cost_per_branch"`

	Modules  Grants    `json:"modules" bson:"modules" yaml:"modules"`
	Features []Feature `json:"features" bson:"features" yaml:"features"`

	IsPopular       bool `json:"is_popular" bson:"is_popular" yaml:"is_popular"`
	IsRecommended   bool `json:"is_recommended" bson:"is_recommended" yaml:"is_recommended"`
	TrialPeriodDays int  `json:"trial_period_days" bson:"trial_period_days" yaml:"trial_period_days"`

	IsCustom            bool   `json:"is_custom" bson:"is_custom" yaml:"is_custom"`
	AssignedPropertyID  string `json:"assigned_property_id,omitempty" bson:"assigned_property_id,omitempty" yaml:"assigned_property_id,omitempty"`
	AssignedEmailDomain string `json:"assigned_email_domain,omitempty" bson:"assigned_email_domain,omitempty" yaml:"assigned_email_domain,omitempty"`

	UpgradeRequests []UpgradeRequest `json:"upgrade_requests,omitempty" bson:"upgrade_requests,omitempty" yaml:"-"`
	SubscriberCount int              `json:"subscriber_count" bson:"subscriber_count" yaml:"-"`
	Version         int64            `json:"version" bson:"version" yaml:"-"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at" yaml:"-"`
	UpdatedAt       time.Time        `json:"updated_at" bson:"updated_at" yaml:"-"`
}

// Sellable reports whether new subscriptions may start on the plan.
func (p *Plan) Sellable() bool {
	return p.Status == StatusActive
}

// BedCeiling is MaxBeds when capped, else BaseBedCount.
func (p *Plan) BedCeiling() int {
	if p.MaxBeds != nil {
		return *p.MaxBeds
	}
	return p.BaseBedCount
}

// HasFeature reports whether f is in the plan's feature list.
func (p *Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// HasModule reports whether the plan enables m.
func (p *Plan) HasModule(m Module) bool { return p.Modules.Enabled(m) }

// Allows reports whether the plan grants action a on submodule s of m.
func (p *Plan) Allows(m Module, s Submodule, a Action) bool { return p.Modules.Allows(m, s, a) }

// VisibleTo reports whether a custom plan is assigned to the viewer. Global
// plans are visible to everyone.
func (p *Plan) VisibleTo(v Viewer) bool {
	if !p.IsCustom {
		return true
	}
	if p.AssignedPropertyID != "" && slices.Contains(v.PropertyIDs, p.AssignedPropertyID) {
		return true
	}
	if p.AssignedEmailDomain != "" {
		if d := sanitizer.ExtractEmailDomain(v.Email); d != "" && d == sanitizer.NormalizeDomain(p.AssignedEmailDomain) {
			return true
		}
	}
	return false
}

// Normalize applies the derived rules before validation: single-branch plans
// carry exactly one branch at no extra cost, and money fields share the base
// price currency.
func (p *Plan) Normalize() {
	p.Name = sanitizer.Apply(p.Name, sanitizer.RemoveControlChars, sanitizer.SingleLine)
	p.Description = sanitizer.Apply(p.Description, sanitizer.RemoveControlChars, sanitizer.RemoveExtraWhitespace)
	p.AssignedEmailDomain = sanitizer.NormalizeDomain(p.AssignedEmailDomain)
	if p.Kind == "" {
		p.Kind = KindStandard
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.BillingCycle == "" {
		p.BillingCycle = CycleMonthly
	}
	if p.BillingCycle == CycleMonthly {
		p.AnnualDiscount = 0
	}
	if !p.AllowMultipleBranches {
		p.BranchCount = 1
		p.CostPerBranch = billing.Money{}
	}

	cur := p.BasePrice.Currency
	if cur == "" {
		cur = billing.DefaultCurrency
	}
	p.BasePrice.Currency = cur
	p.TopUpPricePerBed.Currency = cur
	p.CostPerBranch.Currency = cur

	if p.AssignedPropertyID != "" || p.AssignedEmailDomain != "" {
		p.IsCustom = true
	}
}

// Clone returns a deep copy.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	if p.MaxBeds != nil {
		v := *p.MaxBeds
		c.MaxBeds = &v
	}
	c.Modules = p.Modules.Clone()
	c.Features = slices.Clone(p.Features)
	c.UpgradeRequests = slices.Clone(p.UpgradeRequests)
	for i := range c.UpgradeRequests {
		if r := c.UpgradeRequests[i].RespondedAt; r != nil {
			t := *r
			c.UpgradeRequests[i].RespondedAt = &t
		}
	}
	return &c
}

// Role of a catalog viewer.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Viewer identifies who is browsing the catalog.
type Viewer struct {
	UserID      string
	Role        Role
	Email       string
	PropertyIDs []string
}

// IsAdmin reports whether the viewer operates the platform.
func (v Viewer) IsAdmin() bool { return v.Role == RoleAdmin }

// IntPtr is a helper for optional limits.
func IntPtr(v int) *int { return &v }

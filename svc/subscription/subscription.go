package subscription

import (
	"slices"
	"time"

	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// Status of a subscription record. Only trial and active are live.
type Status string

const (
	StatusTrial      Status = "trial"
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
	StatusUpgraded   Status = "upgraded"
	StatusDowngraded Status = "downgraded"
)

// Live reports whether the status grants access.
func (s Status) Live() bool {
	return s == StatusTrial || s == StatusActive
}

// Cycle is the billing period of a subscription.
type Cycle string

const (
	CycleTrial   Cycle = "trial"
	CycleMonthly Cycle = "monthly"
	CycleAnnual  Cycle = "annual"
)

// Advance returns t moved forward by one period of c.
func (c Cycle) Advance(t time.Time) time.Time {
	if c == CycleAnnual {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// PaymentStatus tracks collection for the current period.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PlanSnapshot freezes the plan terms a subscription was sold on, so later
// catalog edits do not change what the user already bought.
type PlanSnapshot struct {
	ID                    string         `json:"id" bson:"id"`
	Name                  string         `json:"name" bson:"name"`
	Kind                  plan.Kind      `json:"kind" bson:"kind"`
	BasePrice             billing.Money  `json:"base_price" bson:"base_price"`
	BaseBedCount          int            `json:"base_bed_count" bson:"base_bed_count"`
	MaxBeds               *int           `json:"max_beds,omitempty" bson:"max_beds,omitempty"`
	AllowMultipleBranches bool           `json:"allow_multiple_branches" bson:"allow_multiple_branches"`
	BranchCount           int            `json:"branch_count" bson:"branch_count"`
	Modules               plan.Grants    `json:"modules" bson:"modules"`
	Features              []plan.Feature `json:"features" bson:"features"`
}

// Snapshot captures the terms of p.
func Snapshot(p *plan.Plan) PlanSnapshot {
	s := PlanSnapshot{
		ID:                    p.ID,
		Name:                  p.Name,
		Kind:                  p.Kind,
		BasePrice:             p.BasePrice,
		BaseBedCount:          p.BaseBedCount,
		AllowMultipleBranches: p.AllowMultipleBranches,
		BranchCount:           p.BranchCount,
		Modules:               p.Modules.Clone(),
		Features:              slices.Clone(p.Features),
	}
	if p.MaxBeds != nil {
		v := *p.MaxBeds
		s.MaxBeds = &v
	}
	return s
}

// HasModule reports whether the snapshot enables m.
func (s PlanSnapshot) HasModule(m plan.Module) bool { return s.Modules.Enabled(m) }

// HasFeature reports whether the snapshot includes f.
func (s PlanSnapshot) HasFeature(f plan.Feature) bool { return slices.Contains(s.Features, f) }

// Allows reports whether the snapshot grants action a on submodule sub of m.
func (s PlanSnapshot) Allows(m plan.Module, sub plan.Submodule, a plan.Action) bool {
	return s.Modules.Allows(m, sub, a)
}

// Usage is the cached resource usage, refreshed by the quota gate.
type Usage struct {
	Beds        int       `json:"beds" bson:"beds"`
	Branches    int       `json:"branches" bson:"branches"`
	Rooms       int       `json:"rooms" bson:"rooms"`
	RefreshedAt time.Time `json:"refreshed_at" bson:"refreshed_at"`
}

// Cancellation records why and when a record stopped being live early.
type Cancellation struct {
	At     time.Time `json:"at" bson:"at"`
	Reason string    `json:"reason" bson:"reason"`
}

// Subscription is one period of a user's relationship with a plan. Changing
// plans closes the record and opens a new one linked by PreviousSubscriptionID.
type Subscription struct {
	ID     string       `json:"id" bson:"_id"`
	UserID string       `json:"user_id" bson:"user_id"`
	PlanID string       `json:"plan_id" bson:"plan_id"`
	Plan   PlanSnapshot `json:"plan" bson:"plan"`

	BillingCycle Cycle      `json:"billing_cycle" bson:"billing_cycle"`
	StartDate    time.Time  `json:"start_date" bson:"start_date"`
	EndDate      time.Time  `json:"end_date" bson:"end_date"`
	TrialEndDate *time.Time `json:"trial_end_date,omitempty" bson:"trial_end_date,omitempty"`

	BedCount    int           `json:"bed_count" bson:"bed_count"`
	BranchCount int           `json:"branch_count" bson:"branch_count"`
	TotalPrice  billing.Money `json:"total_price" bson:"total_price"`

	Status        Status         `json:"status" bson:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status" bson:"payment_status"`
	Payments      []PaymentEvent `json:"payments" bson:"payments"`
	AutoRenew     bool           `json:"auto_renew" bson:"auto_renew"`
	Cancellation  *Cancellation  `json:"cancellation,omitempty" bson:"cancellation,omitempty"`

	PreviousSubscriptionID string     `json:"previous_subscription_id,omitempty" bson:"previous_subscription_id,omitempty"`
	Usage                  Usage      `json:"usage" bson:"usage"`
	RenewalCount           int        `json:"renewal_count" bson:"renewal_count"`
	TrialReminderAt        *time.Time `json:"-" bson:"trial_reminder_at,omitempty"`

	// Live mirrors Status.Live() so the store can index it.
	Live      bool      `json:"live" bson:"live"`
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsTrial reports whether the record is a running trial.
func (s *Subscription) IsTrial() bool { return s.Status == StatusTrial }

// DaysRemaining returns the whole days left until the record ends, rounded up.
func (s *Subscription) DaysRemaining(now time.Time) int {
	end := s.EndDate
	if s.TrialEndDate != nil && s.IsTrial() {
		end = *s.TrialEndDate
	}
	return billing.DaysUntil(now, end)
}

// BedCeiling is the contracted number of beds.
func (s *Subscription) BedCeiling() int { return s.BedCount }

// MonthlyPrice normalizes TotalPrice to one month.
func (s *Subscription) MonthlyPrice() billing.Money {
	if s.BillingCycle == CycleAnnual {
		return billing.Money{Amount: s.TotalPrice.Amount / 12, Currency: s.TotalPrice.Currency}
	}
	return s.TotalPrice
}

func (s *Subscription) setStatus(st Status, now time.Time) {
	s.Status = st
	s.Live = st.Live()
	s.UpdatedAt = now
}

func (s *Subscription) cancel(reason string, now time.Time) {
	s.Cancellation = &Cancellation{At: now, Reason: reason}
	s.AutoRenew = false
}

// hasPayment reports whether an event with the same order and payment id
// is already on the record.
func (s *Subscription) hasPayment(orderID, paymentID string, status PaymentEventStatus) bool {
	for _, p := range s.Payments {
		if p.OrderID == orderID && p.PaymentID == paymentID && p.Status == status {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.Plan.Modules = s.Plan.Modules.Clone()
	c.Plan.Features = slices.Clone(s.Plan.Features)
	if s.Plan.MaxBeds != nil {
		v := *s.Plan.MaxBeds
		c.Plan.MaxBeds = &v
	}
	c.Payments = slices.Clone(s.Payments)
	if s.TrialEndDate != nil {
		t := *s.TrialEndDate
		c.TrialEndDate = &t
	}
	if s.TrialReminderAt != nil {
		t := *s.TrialReminderAt
		c.TrialReminderAt = &t
	}
	if s.Cancellation != nil {
		cc := *s.Cancellation
		c.Cancellation = &cc
	}
	return &c
}

// PaymentEventStatus is the gateway outcome of one payment attempt.
type PaymentEventStatus string

const (
	PaymentEventCreated  PaymentEventStatus = "created"
	PaymentEventPaid     PaymentEventStatus = "paid"
	PaymentEventFailed   PaymentEventStatus = "failed"
	PaymentEventRefunded PaymentEventStatus = "refunded"
)

// PaymentEvent is an append-only entry in a subscription's payment history.
type PaymentEvent struct {
	Gateway      string             `json:"gateway" bson:"gateway"`
	OrderID      string             `json:"order_id" bson:"order_id"`
	PaymentID    string             `json:"payment_id" bson:"payment_id"`
	Amount       billing.Money      `json:"amount" bson:"amount"`
	Status       PaymentEventStatus `json:"status" bson:"status"`
	Method       string             `json:"method,omitempty" bson:"method,omitempty"`
	Reason       string             `json:"reason,omitempty" bson:"reason,omitempty"`
	BillingCycle Cycle              `json:"billing_cycle" bson:"billing_cycle"`
	PlanID       string             `json:"plan_id" bson:"plan_id"`
	PlanName     string             `json:"plan_name" bson:"plan_name"`
	BedCount     int                `json:"bed_count" bson:"bed_count"`
	BranchCount  int                `json:"branch_count" bson:"branch_count"`
	RecordedAt   time.Time          `json:"recorded_at" bson:"recorded_at"`
}

// PaymentKey identifies a gateway payment for idempotency.
type PaymentKey struct {
	OrderID   string
	PaymentID string
}

package entitlement

import (
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// Resource is a countable resource an owner creates.
type Resource string

const (
	ResourceRooms    Resource = "rooms"
	ResourceBeds     Resource = "beds"
	ResourceBranches Resource = "branches"
)

// Terms is what a plan grants. *plan.Plan and subscription.PlanSnapshot
// implement it.
type Terms interface {
	HasModule(m plan.Module) bool
	HasFeature(f plan.Feature) bool
	Allows(m plan.Module, s plan.Submodule, a plan.Action) bool
}

// HasModule reports whether t enables m.
func HasModule(t Terms, m plan.Module) bool { return t != nil && t.HasModule(m) }

// HasFeature reports whether t includes f.
func HasFeature(t Terms, f plan.Feature) bool { return t != nil && t.HasFeature(f) }

// HasPermission reports whether t grants action a on submodule s of m.
func HasPermission(t Terms, m plan.Module, s plan.Submodule, a plan.Action) bool {
	return t != nil && t.Allows(m, s, a)
}

// Limit is current usage against a ceiling.
type Limit struct {
	Current   int `json:"current"`
	Max       int `json:"max"`
	Remaining int `json:"remaining"`
}

func newLimit(current, ceiling int) Limit {
	return Limit{Current: current, Max: ceiling, Remaining: max(ceiling-current, 0)}
}

// Percent returns usage as a percentage of the ceiling.
func (l Limit) Percent() int {
	if l.Max <= 0 {
		return 100
	}
	return l.Current * 100 / l.Max
}

// Verdict answers whether a creation may proceed. A denial is a Verdict
// with Allowed false, never an error.
type Verdict struct {
	Allowed  bool     `json:"allowed"`
	Resource Resource `json:"limitType"`
	Reason   string   `json:"reason,omitempty"`

	CurrentRooms   int `json:"currentRooms"`
	MaxRooms       int `json:"maxRooms"`
	RemainingRooms int `json:"remainingRooms"`

	CurrentBeds    int `json:"currentBeds"`
	MaxAllowedBeds int `json:"maxAllowedBeds"`
	RemainingBeds  int `json:"remainingBeds"`

	CurrentBranches   int `json:"currentBranches"`
	MaxBranches       int `json:"maxBranches"`
	RemainingBranches int `json:"remainingBranches"`

	RequiresUpgrade bool   `json:"requiresUpgrade"`
	SubscriptionID  string `json:"subscriptionId,omitempty"`
	PlanName        string `json:"planName,omitempty"`
}

// Snapshot is an owner's usage against every ceiling.
type Snapshot struct {
	SubscriptionID string `json:"subscriptionId"`
	PlanName       string `json:"planName"`
	Status         string `json:"status"`
	DaysRemaining  int    `json:"daysRemaining"`
	Rooms          Limit  `json:"rooms"`
	Beds           Limit  `json:"beds"`
	Branches       Limit  `json:"branches"`
}

// Limit returns the limit of r.
func (s Snapshot) Limit(r Resource) Limit {
	switch r {
	case ResourceRooms:
		return s.Rooms
	case ResourceBranches:
		return s.Branches
	default:
		return s.Beds
	}
}

func (s Snapshot) verdict(r Resource) Verdict {
	return Verdict{
		Allowed:           true,
		Resource:          r,
		CurrentRooms:      s.Rooms.Current,
		MaxRooms:          s.Rooms.Max,
		RemainingRooms:    s.Rooms.Remaining,
		CurrentBeds:       s.Beds.Current,
		MaxAllowedBeds:    s.Beds.Max,
		RemainingBeds:     s.Beds.Remaining,
		CurrentBranches:   s.Branches.Current,
		MaxBranches:       s.Branches.Max,
		RemainingBranches: s.Branches.Remaining,
		SubscriptionID:    s.SubscriptionID,
		PlanName:          s.PlanName,
	}
}

package plan

import (
	"net/http"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

var (
	ErrPlanNotFound    = billing.NewError(billing.CodePlanNotFound, http.StatusNotFound, "plan not found")
	ErrPlanUnavailable = billing.NewError(billing.CodePlanUnavailable, http.StatusConflict, "plan is not available")
	ErrDuplicateName   = billing.NewError(billing.CodeConflict, http.StatusConflict, "a plan with this name already exists")
	ErrVersionConflict = billing.NewError(billing.CodeConflict, http.StatusConflict, "plan was modified concurrently")
	ErrInvalidPlan     = billing.NewError(billing.CodeValidation, http.StatusUnprocessableEntity, "invalid plan")
	ErrInvalidCost     = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "invalid bed or branch count")

	ErrNotCustomPlan          = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "upgrade requests are accepted for custom plans only")
	ErrUpgradeRequestPending  = billing.NewError(billing.CodeUpgradeRequestConflict, http.StatusConflict, "an upgrade request is already pending")
	ErrUpgradeRequestNotFound = billing.NewError(billing.CodeNotFound, http.StatusNotFound, "upgrade request not found")
	ErrUpgradeRequestResolved = billing.NewError(billing.CodeConflict, http.StatusConflict, "upgrade request already resolved")
)

// Constraint tags reported by CalculateCost.
const (
	TagNegativeCount       = "negative_count"
	TagBelowBaseBeds       = "below_base_beds"
	TagAboveMaxBeds        = "above_max_beds"
	TagBranchLimitExceeded = "branch_limit_exceeded"
	TagBranchesNotAllowed  = "branches_not_allowed"
)

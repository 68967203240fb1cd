package quota

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/entitlement"
)

var (
	ErrQuotaExceeded   = billing.NewError(billing.CodeQuotaExceeded, http.StatusPaymentRequired, "plan limit reached")
	ErrBatchTooLarge   = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "too many rows in one upload")
	ErrInvalidProperty = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "invalid property")
	ErrEmptyBatch      = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "upload has no rows")
)

// DeniedError carries the refusal so callers can render an upgrade prompt.
// It matches ErrQuotaExceeded.
type DeniedError struct {
	Verdict entitlement.Verdict
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuotaExceeded.Message, e.Verdict.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrQuotaExceeded }

// Details is rendered into API error responses.
func (e *DeniedError) Details() map[string]any {
	v := e.Verdict
	return map[string]any{
		"limitType":         v.Resource,
		"currentRooms":      v.CurrentRooms,
		"maxRooms":          v.MaxRooms,
		"remainingRooms":    v.RemainingRooms,
		"currentBeds":       v.CurrentBeds,
		"maxAllowedBeds":    v.MaxAllowedBeds,
		"remainingBeds":     v.RemainingBeds,
		"currentBranches":   v.CurrentBranches,
		"maxBranches":       v.MaxBranches,
		"remainingBranches": v.RemainingBranches,
		"requiresUpgrade":   v.RequiresUpgrade,
	}
}

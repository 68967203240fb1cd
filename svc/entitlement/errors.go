package entitlement

import (
	"net/http"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

var (
	// ErrUsageUnavailable means usage or the subscription could not be read.
	// It is transient and never means the request was denied.
	ErrUsageUnavailable = billing.NewError(billing.CodeUnavailable, http.StatusServiceUnavailable, "usage is temporarily unavailable, try again")
	ErrInvalidRequest   = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "invalid entitlement request")
)

package billing

import (
	"net/http"

	core "github.com/dmitrymomot/hostelkit/svc/billing"
)

var (
	ErrUnauthorized = core.NewError(core.CodeUnauthorized, http.StatusUnauthorized, "authentication required")
	ErrForbidden    = core.NewError(core.CodeForbidden, http.StatusForbidden, "operator access required")
	ErrInvalidCSV   = core.NewError(core.CodeValidation, http.StatusBadRequest, "invalid room upload file")
	ErrRateLimited  = core.NewError("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
)

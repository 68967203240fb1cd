package billing

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes returned to API clients.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodePlanNotFound           = "PLAN_NOT_FOUND"
	CodePlanUnavailable        = "PLAN_UNAVAILABLE"
	CodeSubscriptionNotFound   = "SUBSCRIPTION_NOT_FOUND"
	CodeAlreadySubscribed      = "ALREADY_HAS_ACTIVE_SUBSCRIPTION"
	CodeTrialAlreadyUsed       = "TRIAL_ALREADY_USED"
	CodeInvalidTransition      = "INVALID_STATUS_TRANSITION"
	CodeQuotaExceeded          = "QUOTA_EXCEEDED"
	CodeConflict               = "CONFLICT"
	CodeForbidden              = "FORBIDDEN"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInvalidSignature       = "INVALID_SIGNATURE"
	CodeUpgradeRequestConflict = "UPGRADE_REQUEST_PENDING"
	CodeUnavailable            = "SERVICE_UNAVAILABLE"
	CodeInternal               = "INTERNAL_ERROR"
)

var (
	// ErrStorage marks failures of a backing store. They are transient.
	ErrStorage = errors.New("billing: storage failure")
	// ErrUnavailable marks any other dependency outage.
	ErrUnavailable = errors.New("billing: dependency unavailable")
)

// Error is a domain failure with a stable code.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so sentinels declared with
// NewError keep matching after Wrap or Withf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus implements the handler status mapping.
func (e *Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

// ErrorCode implements the handler code mapping.
func (e *Error) ErrorCode() string { return e.Code }

// NewError declares a coded error.
func NewError(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// Withf returns a copy of e with a formatted message and the same code.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Code extracts the machine code of err. Transient failures map to
// CodeUnavailable and anything else to CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	if IsTransient(err) {
		return CodeUnavailable
	}
	return CodeInternal
}

// IsTransient reports whether err came from an infrastructure outage.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrUnavailable)
}

// Storage joins err with ErrStorage. Nil stays nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrStorage, err)
}

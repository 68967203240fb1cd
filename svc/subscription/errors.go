package subscription

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

var (
	ErrSubscriptionNotFound = billing.NewError(billing.CodeSubscriptionNotFound, http.StatusNotFound, "subscription not found")
	ErrNoLiveSubscription   = billing.NewError(billing.CodeSubscriptionNotFound, http.StatusNotFound, "no active subscription")
	ErrAlreadySubscribed    = billing.NewError(billing.CodeAlreadySubscribed, http.StatusConflict, "an active subscription already exists")
	ErrTrialAlreadyUsed     = billing.NewError(billing.CodeTrialAlreadyUsed, http.StatusConflict, "the free trial has already been used")
	ErrInvalidTransition    = billing.NewError(billing.CodeInvalidTransition, http.StatusConflict, "invalid status transition")
	ErrInvalidRequest       = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "invalid subscription request")
	ErrVersionConflict      = billing.NewError(billing.CodeConflict, http.StatusConflict, "subscription was modified concurrently")
	ErrLiveExists           = billing.NewError(billing.CodeConflict, http.StatusConflict, "user already has a live subscription record")
	ErrAlreadyRenewed       = billing.NewError(billing.CodeConflict, http.StatusConflict, "subscription was already renewed or changed")
	ErrPaymentOutstanding   = billing.NewError(billing.CodeConflict, http.StatusConflict, "the current period is not paid")
	ErrDuplicatePayment     = billing.NewError(billing.CodeConflict, http.StatusConflict, "payment already applied")
)

// AlreadySubscribedError is returned by ActivateFreeTrial when the user has
// a live subscription. It matches ErrAlreadySubscribed.
type AlreadySubscribedError struct {
	SubscriptionID string
	Status         Status
	DaysRemaining  int
}

func (e *AlreadySubscribedError) Error() string {
	return fmt.Sprintf("%s (%s, %d days remaining)", ErrAlreadySubscribed.Message, e.Status, e.DaysRemaining)
}

func (e *AlreadySubscribedError) Unwrap() error { return ErrAlreadySubscribed }

// Details is rendered into API error responses.
func (e *AlreadySubscribedError) Details() map[string]any {
	return map[string]any{
		"subscriptionId": e.SubscriptionID,
		"status":         e.Status,
		"daysRemaining":  e.DaysRemaining,
	}
}

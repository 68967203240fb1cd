package payment

import (
	"net/http"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

var (
	ErrInvalidSignature = billing.NewError(billing.CodeInvalidSignature, http.StatusBadRequest, "invalid webhook signature")
	ErrMalformedPayload = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "malformed webhook payload")
	ErrMissingMetadata  = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "payment metadata incomplete")
	ErrUnknownGateway   = billing.NewError(billing.CodeNotFound, http.StatusNotFound, "unknown payment gateway")
	ErrPayloadTooLarge  = billing.NewError(billing.CodeValidation, http.StatusRequestEntityTooLarge, "webhook payload too large")
)

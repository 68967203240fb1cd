package webhook

import "errors"

var (
	ErrMissingSecret    = errors.New("webhook: signing secret is not configured")
	ErrMissingSignature = errors.New("webhook: signature header is missing")
	ErrInvalidSignature = errors.New("webhook: signature mismatch")
	ErrEmptyPayload     = errors.New("webhook: payload is empty")
)

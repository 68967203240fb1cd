package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("email: failed to send")
	ErrInvalidConfig     = errors.New("email: invalid configuration")
	ErrInvalidMessage    = errors.New("email: invalid message")
)

package subscription

import (
	"context"
	"errors"

	"github.com/dmitrymomot/hostelkit/pkg/statemachine"
)

// Event drives a status transition.
type Event string

const (
	EventActivate  Event = "activate"
	EventExpire    Event = "expire"
	EventCancel    Event = "cancel"
	EventUpgrade   Event = "upgrade"
	EventDowngrade Event = "downgrade"
)

// Lifecycle is the status transition table. Statuses without outgoing rows
// are terminal.
var Lifecycle = statemachine.New(
	statemachine.WithTransition(StatusTrial, StatusActive, EventActivate),
	statemachine.WithTransition(StatusTrial, StatusExpired, EventExpire),
	statemachine.WithTransition(StatusTrial, StatusCancelled, EventCancel),
	statemachine.WithTransition(StatusActive, StatusExpired, EventExpire),
	statemachine.WithTransition(StatusActive, StatusCancelled, EventCancel),
	statemachine.WithTransition(StatusActive, StatusUpgraded, EventUpgrade),
	statemachine.WithTransition(StatusActive, StatusDowngraded, EventDowngrade),
)

// next resolves a transition, mapping table misses to ErrInvalidTransition.
func next(ctx context.Context, from Status, ev Event) (Status, error) {
	to, err := Lifecycle.Next(ctx, from, ev, nil)
	if err != nil {
		return from, errors.Join(ErrInvalidTransition.Withf("cannot %s a subscription in status %s", ev, from), err)
	}
	return to, nil
}

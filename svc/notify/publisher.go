package notify

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

// Publisher delivers an event to its user. Delivery is best effort: callers
// log failures and never roll back on them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Nop drops every event.
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })

// Send builds an event from p and publishes it, logging failures.
func Send(ctx context.Context, pub Publisher, log *slog.Logger, userID string, p Payload) {
	e, err := New(userID, p)
	if err == nil {
		err = pub.Publish(ctx, e)
	}
	if err != nil {
		log.WarnContext(ctx, "event not published",
			logger.UserID(userID),
			logger.Event(string(p.EventType())),
			logger.Error(err),
		)
	}
}

// MultiPublisher fans an event out to several publishers. A failing
// publisher does not stop the others; failures are logged.
type MultiPublisher struct {
	pubs []Publisher
	log  *slog.Logger
}

// NewMultiPublisher combines pubs.
func NewMultiPublisher(log *slog.Logger, pubs ...Publisher) *MultiPublisher {
	return &MultiPublisher{pubs: pubs, log: log}
}

func (m *MultiPublisher) Publish(ctx context.Context, e Event) error {
	for _, p := range m.pubs {
		if err := p.Publish(ctx, e); err != nil {
			m.log.WarnContext(ctx, "publisher failed",
				logger.UserID(e.UserID),
				logger.Event(string(e.Type)),
				logger.Error(err),
			)
		}
	}
	return nil
}

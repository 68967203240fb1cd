package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/hostelkit/pkg/broadcast"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

// Hub is the in-process registry of live user channels. A user may hold
// several connections; events for users with none are dropped.
type Hub struct {
	reg           *broadcast.Registry[string, Event]
	sweepInterval time.Duration
	log           *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*hubOptions)

type hubOptions struct {
	buffer        int
	sweepInterval time.Duration
	log           *slog.Logger
}

// WithBuffer sets the per-connection queue length.
func WithBuffer(n int) HubOption {
	return func(o *hubOptions) { o.buffer = n }
}

// WithSweepInterval sets how often empty channels are released.
func WithSweepInterval(d time.Duration) HubOption {
	return func(o *hubOptions) { o.sweepInterval = d }
}

// WithHubLogger sets the logger.
func WithHubLogger(l *slog.Logger) HubOption {
	return func(o *hubOptions) { o.log = l }
}

// NewHub creates a Hub.
func NewHub(opts ...HubOption) *Hub {
	o := hubOptions{buffer: 16, sweepInterval: time.Minute, log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Hub{sweepInterval: o.sweepInterval, log: o.log}
	h.reg = broadcast.NewRegistry[string, Event](
		broadcast.WithBuffer[Event](o.buffer),
		broadcast.WithDropHandler(func(e Event) {
			h.log.Warn("slow subscriber, event dropped", logger.UserID(e.UserID), logger.Event(string(e.Type)))
		}),
	)
	return h
}

// Register opens a channel for userID that closes when ctx ends.
func (h *Hub) Register(ctx context.Context, userID string) (*broadcast.Subscription[Event], error) {
	return h.reg.Subscribe(ctx, userID)
}

// Connected returns the number of live connections for userID.
func (h *Hub) Connected(userID string) int {
	return h.reg.Subscribers(userID)
}

// Publish delivers e to the user's live connections.
func (h *Hub) Publish(ctx context.Context, e Event) error {
	n := h.reg.Publish(e.UserID, e)
	if n == 0 {
		h.log.DebugContext(ctx, "no live connection, event dropped", logger.UserID(e.UserID), logger.Event(string(e.Type)))
	}
	return nil
}

// Run releases empty channels periodically until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) error {
	t := time.NewTicker(h.sweepInterval)
	defer t.Stop()
	defer h.reg.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := h.reg.Sweep(); n > 0 {
				h.log.DebugContext(ctx, "released idle channels", logger.Count("channels", n))
			}
		}
	}
}

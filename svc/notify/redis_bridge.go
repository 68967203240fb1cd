package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

// DefaultChannel is the Redis pub/sub channel events travel on.
const DefaultChannel = "hostelkit:billing:events"

// RedisBridge makes the Hub span instances: Publish sends events through Redis
// and Run relays every event received from Redis into the local Hub, so a
// user connected to any instance gets events produced on any other.
type RedisBridge struct {
	client  redis.UniversalClient
	local   *Hub
	channel string
	log     *slog.Logger
	ready   chan struct{}
}

// BridgeOption configures a RedisBridge.
type BridgeOption func(*RedisBridge)

// WithChannel overrides DefaultChannel.
func WithChannel(name string) BridgeOption {
	return func(b *RedisBridge) { b.channel = name }
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(b *RedisBridge) { b.log = l }
}

// NewRedisBridge creates a bridge delivering into local.
func NewRedisBridge(client redis.UniversalClient, local *Hub, opts ...BridgeOption) *RedisBridge {
	b := &RedisBridge{
		client:  client,
		local:   local,
		channel: DefaultChannel,
		log:     logger.Discard(),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBridge) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Ready is closed once Run has subscribed to the channel.
func (b *RedisBridge) Ready() <-chan struct{} { return b.ready }

// Run relays events from Redis to the local Hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("notify: subscribe %s: %w", b.channel, err)
	}
	close(b.ready)
	b.log.InfoContext(ctx, "event bridge subscribed", slog.String("channel", b.channel))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.WarnContext(ctx, "malformed event on bridge", logger.Error(err))
				continue
			}
			_ = b.local.Publish(ctx, e)
		}
	}
}

package payment

import (
	"net/http"
)

// Gateway verifies and decodes the deliveries of one payment provider.
type Gateway interface {
	// Name is the path segment the gateway posts to.
	Name() string
	// Verify authenticates raw, the exact request body, against the
	// signature headers.
	Verify(raw []byte, header http.Header) error
	// Parse decodes a verified delivery.
	Parse(raw []byte) (Notification, error)
}

// Config holds the gateway secrets. A gateway without a secret is not
// mounted.
type Config struct {
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	PaddleWebhookSecret   string `env:"PADDLE_WEBHOOK_SECRET"`
	StripeWebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET"`
	MaxBodyBytes          int64  `env:"BILLING_WEBHOOK_MAX_BODY" envDefault:"1048576"`
	ArchivePrefix         string `env:"BILLING_WEBHOOK_ARCHIVE_PREFIX" envDefault:"webhooks"`
}

// DefaultConfig returns limits without secrets.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: 1 << 20, ArchivePrefix: "webhooks"}
}

// Gateways builds every gateway that has a secret configured.
func Gateways(cfg Config) []Gateway {
	var out []Gateway
	if cfg.RazorpayWebhookSecret != "" {
		out = append(out, NewRazorpay(cfg.RazorpayWebhookSecret))
	}
	if cfg.PaddleWebhookSecret != "" {
		out = append(out, NewPaddle(cfg.PaddleWebhookSecret))
	}
	if cfg.StripeWebhookSecret != "" {
		out = append(out, NewStripe(cfg.StripeWebhookSecret))
	}
	return out
}

package app

import (
	"time"

	"github.com/dmitrymomot/hostelkit/pkg/email"
	"github.com/dmitrymomot/hostelkit/pkg/file"
	"github.com/dmitrymomot/hostelkit/pkg/httpserver"
	"github.com/dmitrymomot/hostelkit/pkg/mongo"
	"github.com/dmitrymomot/hostelkit/pkg/pg"
	"github.com/dmitrymomot/hostelkit/pkg/redis"
	"github.com/dmitrymomot/hostelkit/svc/entitlement"
	"github.com/dmitrymomot/hostelkit/svc/payment"
	"github.com/dmitrymomot/hostelkit/svc/quota"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// Config is the process configuration. Nested structs read their own
// prefixed variables.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"hostelkit-billing"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Locale formats money in cost breakdowns.
	Locale          string        `env:"BILLING_LOCALE" envDefault:"en-IN"`
	PlanCacheSize   int           `env:"BILLING_PLAN_CACHE_SIZE" envDefault:"256"`
	PlanCacheTTL    time.Duration `env:"BILLING_PLAN_CACHE_TTL" envDefault:"1m"`
	UsersCollection string        `env:"BILLING_USERS_COLLECTION" envDefault:"users"`
	ArchiveDir      string        `env:"BILLING_WEBHOOK_ARCHIVE_DIR" envDefault:"./tmp/webhooks"`
	JWTSecret       string        `env:"AUTH_JWT_SECRET"`
	MountPath       string        `env:"BILLING_MOUNT_PATH" envDefault:"/billing"`

	// WebhookRate bounds deliveries per client IP and gateway per minute.
	WebhookRate int `env:"BILLING_WEBHOOK_RATE" envDefault:"600"`

	HTTP         httpserver.Config
	Mongo        mongo.Config
	PG           pg.Config
	Redis        redis.Config
	Email        email.Config
	S3           file.S3Config
	Subscription subscription.Config
	Entitlement  entitlement.Config
	Quota        quota.Config
	Payment      payment.Config
}

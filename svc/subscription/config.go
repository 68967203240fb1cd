package subscription

import "time"

// Config holds lifecycle tuning.
type Config struct {
	// DefaultTrialDays applies when the trial plan sets no trial length.
	DefaultTrialDays  int           `env:"BILLING_DEFAULT_TRIAL_DAYS" envDefault:"14"`
	RenewalWindow     time.Duration `env:"BILLING_RENEWAL_WINDOW" envDefault:"24h"`
	TrialReminderDays int           `env:"BILLING_TRIAL_REMINDER_DAYS" envDefault:"3"`
	LockTTL           time.Duration `env:"BILLING_LOCK_TTL" envDefault:"30s"`
	AutoRenew         bool          `env:"BILLING_AUTO_RENEW" envDefault:"true"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTrialDays:  14,
		RenewalWindow:     24 * time.Hour,
		TrialReminderDays: 3,
		LockTTL:           30 * time.Second,
		AutoRenew:         true,
	}
}

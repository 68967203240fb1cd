package quota

// Config tunes the gate.
type Config struct {
	// WarnPercent is the usage share that triggers USAGE_LIMIT_WARNING.
	WarnPercent int `env:"BILLING_USAGE_WARN_PERCENT" envDefault:"80"`
	// MaxBatch caps the rows of one bulk upload.
	MaxBatch int `env:"BILLING_MAX_BULK_ROWS" envDefault:"500"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{WarnPercent: 80, MaxBatch: 500}
}

package entitlement

// Config tunes the resolver.
type Config struct {
	// DefaultBedCeiling applies when neither the subscription nor its plan
	// names a bed ceiling.
	DefaultBedCeiling int `env:"BILLING_DEFAULT_BED_CEILING" envDefault:"10"`
	// AutoProvisionTrial starts a free trial for owners who never subscribed.
	AutoProvisionTrial bool `env:"BILLING_AUTO_PROVISION_TRIAL" envDefault:"true"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{DefaultBedCeiling: 10, AutoProvisionTrial: true}
}

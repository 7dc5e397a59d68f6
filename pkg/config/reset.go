package config

import "time"

// ResetConfig holds password reset settings
type ResetConfig struct {
	PinTTL        time.Duration `env:"RESET_PIN_TTL" env-default:"10m"`
	SweepInterval time.Duration `env:"RESET_PIN_SWEEP_INTERVAL" env-default:"0s"`
	Persistence   string        `env:"RESET_PERSISTENCE" env-default:"postgres"`

	// VerifyLimit caps PIN checks per email per minute; zero disables throttling
	VerifyLimit int `env:"RESET_VERIFY_LIMIT" env-default:"0"`

	// ExposePin echoes the PIN in the forgot-password response; set false once mail delivery is trusted.
	ExposePin bool `env:"RESET_EXPOSE_PIN" env-default:"true"`
}

func (r ResetConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequirePositiveDuration("RESET_PIN_TTL", r.PinTTL),
		RequireNonNegativeDuration("RESET_PIN_SWEEP_INTERVAL", r.SweepInterval),
		RequireNonNegative("RESET_VERIFY_LIMIT", r.VerifyLimit),
		RequireOneOf("RESET_PERSISTENCE", r.Persistence, []string{"postgres", "memory"}),
	)
}

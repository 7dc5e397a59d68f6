package config

import "time"

const (
	TrackerMemory = "memory"
	TrackerRedis  = "redis"
)

// LoginConfig contains lockout settings for the login flow.
type LoginConfig struct {
	// MaxFailedAttempts is the number of consecutive failures that starts a lockout
	MaxFailedAttempts int `env:"LOGIN_MAX_FAILED_ATTEMPTS" env-default:"3"`

	// LockoutDuration is how long an account stays locked before a reset is demanded
	LockoutDuration time.Duration `env:"LOGIN_LOCKOUT_DURATION" env-default:"60s"`

	// Tracker selects where attempt state lives: "memory" or "redis"
	Tracker string `env:"LOGIN_TRACKER" env-default:"memory"`

	// TrackerTTL bounds how long idle attempt state is kept in redis; zero keeps it until reset
	TrackerTTL time.Duration `env:"LOGIN_TRACKER_TTL" env-default:"0s"`
}

func (l LoginConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequirePositive("LOGIN_MAX_FAILED_ATTEMPTS", l.MaxFailedAttempts),
		RequirePositiveDuration("LOGIN_LOCKOUT_DURATION", l.LockoutDuration),
		RequireOneOf("LOGIN_TRACKER", l.Tracker, []string{TrackerMemory, TrackerRedis}),
		RequireNonNegativeDuration("LOGIN_TRACKER_TTL", l.TrackerTTL),
	)
}

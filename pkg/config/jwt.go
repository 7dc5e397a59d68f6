package config

import "time"

// JWTConfig holds token signing settings. Secret may be base64 encoded;
// anything that does not decode is used as raw bytes.
type JWTConfig struct {
	Secret        string `env:"JWT_SECRET"`
	Issuer        string `env:"JWT_ISSUER" env-default:"hrconnect"`
	Audience      string `env:"JWT_AUDIENCE" env-default:"hrconnect-clients"`
	ExpiryMinutes int    `env:"JWT_EXPIRY_MINUTES" env-default:"60"`
}

// Expiry returns the token lifetime
func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryMinutes) * time.Minute
}

func (j JWTConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("JWT_SECRET", j.Secret),
		RequireNonEmpty("JWT_ISSUER", j.Issuer),
		RequireNonEmpty("JWT_AUDIENCE", j.Audience),
		RequirePositive("JWT_EXPIRY_MINUTES", j.ExpiryMinutes),
	)
}

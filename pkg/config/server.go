package config

import "strings"

// OrgConfig describes the organisation whose staff may sign in
type OrgConfig struct {
	EmailDomain string `env:"ORG_EMAIL_DOMAIN" env-default:"singular.co.za"`
	// SeedAdminEmail and SeedAdminPassword create a SuperUser at startup when both are set
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL" env-default:""`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD" env-default:""`
}

func (o OrgConfig) Validate() ValidationErrors {
	var errs []*ValidationError
	errs = append(errs, RequireNonEmpty("ORG_EMAIL_DOMAIN", o.EmailDomain))
	if strings.HasPrefix(o.EmailDomain, "@") {
		errs = append(errs, &ValidationError{Field: "ORG_EMAIL_DOMAIN", Message: "must not start with @"})
	}
	if (o.SeedAdminEmail == "") != (o.SeedAdminPassword == "") {
		errs = append(errs, &ValidationError{Field: "SEED_ADMIN_EMAIL", Message: "SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together"})
	}
	return CollectErrors(errs...)
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

func (c CORSConfig) Validate() ValidationErrors {
	if len(c.AllowedOrigins) == 0 {
		return ValidationErrors{{Field: "CORS_ALLOWED_ORIGINS", Message: "must list at least one origin"}}
	}
	return nil
}

// RateLimitConfig throttles each client address across the auth endpoints
type RateLimitConfig struct {
	PerClientPerMinute int `env:"AUTH_RATE_LIMIT_PER_MINUTE" env-default:"0"`
	// TrustProxyHeaders keys clients by X-Forwarded-For; enable only behind a proxy that sets it
	TrustProxyHeaders bool `env:"AUTH_TRUST_PROXY_HEADERS" env-default:"false"`
}

func (r RateLimitConfig) Validate() ValidationErrors {
	return CollectErrors(RequireNonNegative("AUTH_RATE_LIMIT_PER_MINUTE", r.PerClientPerMinute))
}

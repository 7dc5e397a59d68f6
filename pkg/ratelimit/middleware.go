package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type errorBody struct {
	Code   string   `json:"code"`
	Errors []string `json:"errors"`
}

// MiddlewareOption configures PerClientMiddleware
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	trustProxyHeaders bool
}

// WithTrustedProxyHeaders keys clients by X-Forwarded-For / X-Real-IP. Only
// enable it behind a proxy that overwrites those headers; otherwise any
// caller can pick a fresh key per request.
func WithTrustedProxyHeaders(trust bool) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.trustProxyHeaders = trust
	}
}

// PerClientMiddleware rejects requests from a client address once its bucket is empty.
func PerClientMiddleware(limiter *RateLimiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var o middlewareOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, o.trustProxyHeaders)
			if !limiter.Allow(ip) {
				slog.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path, "method", r.Method)
				w.Header().Set("Retry-After", "60")
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, errorBody{
					Code:   "RATE_LIMIT_EXCEEDED",
					Errors: []string{"Too many requests. Please try again later."},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the peer address of r. Forwarding headers are consulted
// only when trustProxyHeaders is set.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

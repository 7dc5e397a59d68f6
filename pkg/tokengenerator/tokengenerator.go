// Package tokengenerator issues and validates the HS256 access tokens handed
// out at login.
package tokengenerator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenGenerator defines methods for token operations
type TokenGenerator interface {
	// GenerateToken signs a token for subject carrying role. It returns the
	// token and its expiry.
	GenerateToken(subject, role string) (string, time.Time, error)

	// ParseToken validates signature, issuer, audience and lifetime.
	ParseToken(tokenStr string) (*Claims, error)
}

// Claims struct for JWT claims
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeSecret interprets secret as standard base64 when it decodes cleanly
// and as raw bytes otherwise.
func DecodeSecret(secret string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) > 0 {
		return decoded
	}
	return []byte(secret)
}

// JwtTokenGenerator implements the TokenGenerator interface
type JwtTokenGenerator struct {
	key      []byte
	Issuer   string
	Audience string
	Expiry   time.Duration
	now      func() time.Time
}

// Option configures a JwtTokenGenerator
type Option func(*JwtTokenGenerator)

// WithClock overrides the time source used for iat and exp.
func WithClock(now func() time.Time) Option {
	return func(g *JwtTokenGenerator) {
		g.now = now
	}
}

// NewJwtTokenGenerator creates a generator. The secret goes through DecodeSecret.
func NewJwtTokenGenerator(secret, issuer, audience string, expiry time.Duration, opts ...Option) (*JwtTokenGenerator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("jwt expiry must be positive, got %s", expiry)
	}
	g := &JwtTokenGenerator{
		key:      DecodeSecret(secret),
		Issuer:   issuer,
		Audience: audience,
		Expiry:   expiry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Key returns the HMAC key so middleware can verify tokens with the same secret.
func (g *JwtTokenGenerator) Key() []byte {
	return g.key
}

func (g *JwtTokenGenerator) GenerateToken(subject, role string) (string, time.Time, error) {
	now := g.now().UTC()
	expiresAt := now.Add(g.Expiry)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(g.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return ss, expiresAt, nil
}

func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(token *jwt.Token) (interface{}, error) {
			return g.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.Issuer),
		jwt.WithAudience(g.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

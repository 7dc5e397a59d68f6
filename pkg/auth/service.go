// Package auth signs users in and walks them through PIN based password
// recovery. AuthService composes the account store, the lockout tracker, the
// reset stores, the notifier and the token generator.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/login"
	"github.com/tendant/hrconnect-auth/pkg/notification"
	"github.com/tendant/hrconnect-auth/pkg/passwordreset"
	"github.com/tendant/hrconnect-auth/pkg/tokengenerator"
)

const (
	DefaultEmailDomain = "singular.co.za"
	DefaultPinTTL      = 10 * time.Minute
)

// Dispatcher sends a templated notice. *notification.NotificationManager satisfies it.
type Dispatcher interface {
	Send(ctx context.Context, noticeType notification.NoticeType, data notification.NotificationData) error
}

// Limiter throttles operations per key.
type Limiter interface {
	Allow(key string) bool
}

type AuthService struct {
	accounts      account.Repository
	resets        passwordreset.Repository
	dispatcher    Dispatcher
	tokens        tokengenerator.TokenGenerator
	hasher        login.PasswordHasher
	policyChecker login.PasswordPolicyChecker
	tracker       login.AttemptTracker
	lockout       login.LockoutPolicy
	pinLimiter    Limiter
	emailDomain   string
	pinTTL        time.Duration
	now           func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithPasswordHasher replaces the default bcrypt hasher.
func WithPasswordHasher(hasher login.PasswordHasher) Option {
	return func(s *AuthService) {
		s.hasher = hasher
	}
}

// WithPolicyChecker replaces the default complexity policy.
func WithPolicyChecker(checker login.PasswordPolicyChecker) Option {
	return func(s *AuthService) {
		s.policyChecker = checker
	}
}

// WithAttemptTracker sets where lockout state lives. Without it an in-memory
// tracker with the configured lockout policy is used.
func WithAttemptTracker(tracker login.AttemptTracker) Option {
	return func(s *AuthService) {
		s.tracker = tracker
	}
}

// WithLockoutPolicy sets the policy for the default tracker and the lockout message.
func WithLockoutPolicy(policy login.LockoutPolicy) Option {
	return func(s *AuthService) {
		s.lockout = policy
	}
}

// WithPinLimiter throttles VerifyPin and CompletePasswordReset per email.
func WithPinLimiter(limiter Limiter) Option {
	return func(s *AuthService) {
		s.pinLimiter = limiter
	}
}

// WithEmailDomain sets the organisation domain, without the leading @.
func WithEmailDomain(domain string) Option {
	return func(s *AuthService) {
		s.emailDomain = strings.ToLower(strings.TrimPrefix(domain, "@"))
	}
}

// WithPinTTL sets how long an issued PIN stays valid.
func WithPinTTL(ttl time.Duration) Option {
	return func(s *AuthService) {
		s.pinTTL = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

func NewAuthService(
	accounts account.Repository,
	resets passwordreset.Repository,
	dispatcher Dispatcher,
	tokens tokengenerator.TokenGenerator,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		accounts:    accounts,
		resets:      resets,
		dispatcher:  dispatcher,
		tokens:      tokens,
		lockout:     login.DefaultLockoutPolicy(),
		emailDomain: DefaultEmailDomain,
		pinTTL:      DefaultPinTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.hasher == nil {
		s.hasher = login.NewBcryptHasher(0)
	}
	if s.policyChecker == nil {
		s.policyChecker = login.NewDefaultPasswordPolicyChecker(nil)
	}
	if s.tracker == nil {
		s.tracker = login.NewInMemoryAttemptTracker(s.lockout, login.WithClock(s.now))
	}
	return s
}

// PinTTL returns how long issued PINs stay valid.
func (s *AuthService) PinTTL() time.Duration {
	return s.pinTTL
}

// inDomain reports whether email has a local part and ends with @domain, ignoring case.
func (s *AuthService) inDomain(email string) bool {
	suffix := "@" + s.emailDomain
	e := strings.ToLower(strings.TrimSpace(email))
	return len(e) > len(suffix) && strings.HasSuffix(e, suffix)
}

func (s *AuthService) domainError() error {
	return ErrValidation.WithMessage(fmt.Sprintf("Email must be a @%s address.", s.emailDomain))
}

// describeDuration renders d for user facing messages, e.g. "60 seconds" or "10 minutes".
func describeDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= 2*time.Minute && d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return plural(int64(d/time.Second), "second")
	}
}

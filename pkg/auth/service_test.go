package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/login"
	"github.com/tendant/hrconnect-auth/pkg/notification"
	"github.com/tendant/hrconnect-auth/pkg/passwordreset"
	"github.com/tendant/hrconnect-auth/pkg/tokengenerator"
)

const (
	testEmail    = "jane.doe@singular.co.za"
	testPassword = "Initial#Pass1"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *AuthService
	accounts *account.InMemoryRepository
	resets   *passwordreset.InMemoryRepository
	notifier *notification.MockNotifier
	tracker  *login.InMemoryAttemptTracker
	tokens   *tokengenerator.JwtTokenGenerator
	hasher   *login.BcryptHasher
	clock    *testClock
	account  account.Account
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		accounts: account.NewInMemoryRepository(),
		notifier: &notification.MockNotifier{},
		hasher:   login.NewBcryptHasher(bcrypt.MinCost),
		clock:    newTestClock(),
	}
	f.resets = passwordreset.NewInMemoryRepository(f.accounts)
	f.tracker = login.NewInMemoryAttemptTracker(login.DefaultLockoutPolicy(), login.WithClock(f.clock.Now))

	var err error
	f.tokens, err = tokengenerator.NewJwtTokenGenerator("test-secret", "hrconnect", "hrconnect-clients", time.Hour,
		tokengenerator.WithClock(f.clock.Now))
	require.NoError(t, err)

	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)
	f.account, err = f.accounts.Create(context.Background(), testEmail, hash, account.RoleNormalUser)
	require.NoError(t, err)

	base := []Option{
		WithPasswordHasher(f.hasher),
		WithAttemptTracker(f.tracker),
		WithClock(f.clock.Now),
	}
	f.svc = NewAuthService(f.accounts, f.resets, notification.NewNotificationManager(f.notifier), f.tokens, append(base, opts...)...)
	return f
}

func TestNewAuthServiceDefaults(t *testing.T) {
	accounts := account.NewInMemoryRepository()
	svc := NewAuthService(accounts, passwordreset.NewInMemoryRepository(accounts), nil, nil)

	assert.Equal(t, DefaultPinTTL, svc.PinTTL())
	assert.Equal(t, DefaultEmailDomain, svc.emailDomain)
	assert.Equal(t, login.DefaultLockoutPolicy(), svc.lockout)
	assert.NotNil(t, svc.hasher)
	assert.NotNil(t, svc.policyChecker)
	assert.IsType(t, &login.InMemoryAttemptTracker{}, svc.tracker)
}

func TestWithEmailDomain(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, nil, WithEmailDomain("@Example.ORG"))

	assert.Equal(t, "example.org", svc.emailDomain)
	assert.True(t, svc.inDomain("someone@example.org"))
	assert.True(t, svc.inDomain("  Someone@EXAMPLE.org "))
	assert.False(t, svc.inDomain("@example.org"))
	assert.False(t, svc.inDomain("someone@example.org.evil.com"))
	assert.False(t, svc.inDomain("someone@notexample.org"))
	assert.False(t, svc.inDomain(""))
}

func TestDescribeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{60 * time.Second, "60 seconds"},
		{90 * time.Second, "90 seconds"},
		{time.Second, "1 second"},
		{2 * time.Minute, "2 minutes"},
		{10 * time.Minute, "10 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, describeDuration(tt.in))
		})
	}
}

func TestGeneratePin(t *testing.T) {
	for i := 0; i < 500; i++ {
		pin, err := generatePin()
		require.NoError(t, err)
		require.Len(t, pin, 4)
		require.GreaterOrEqual(t, pin, "1000")
		require.LessOrEqual(t, pin, "9999")
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/login"
)

// LoginResult is returned on a successful sign-in.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   account.Account
}

// Login checks the password for email and issues a signed token.
//
// Unknown accounts are rejected with ErrInvalidCredentials and are never
// tracked. Known accounts go through the attempt tracker before and after
// the password check.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = account.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return LoginResult{}, ErrValidation.WithMessage("Email and password are required.")
	}
	if !s.inDomain(email) {
		return LoginResult{}, s.domainError()
	}

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			slog.Info("login for unknown account", "email", email)
			return LoginResult{}, ErrInvalidCredentials
		}
		slog.Error("failed to look up account", "email", email, "err", err)
		return LoginResult{}, internalError(err, "failed to look up account")
	}

	if err := s.tracker.Check(ctx, email); err != nil {
		return LoginResult{}, s.trackerError(email, err)
	}

	ok, err := s.hasher.Verify(password, acct.PasswordHash)
	if err != nil {
		slog.Error("failed to verify password", "email", email, "err", err)
		return LoginResult{}, internalError(err, "failed to verify password")
	}
	if !ok {
		return LoginResult{}, s.trackerError(email, s.tracker.RecordFailure(ctx, email))
	}

	if err := s.tracker.RecordSuccess(ctx, email); err != nil {
		return LoginResult{}, s.trackerError(email, err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(acct.Email, acct.Role.String())
	if err != nil {
		slog.Error("failed to generate token", "email", email, "err", err)
		return LoginResult{}, internalError(err, "failed to generate token")
	}

	slog.Info("login succeeded", "email", email, "role", acct.Role)
	return LoginResult{Token: token, ExpiresAt: expiresAt, Account: acct}, nil
}

// trackerError maps a tracker rejection to the domain error shown to the user.
func (s *AuthService) trackerError(email string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, login.ErrLockoutStarted):
		slog.Warn("account locked after repeated failures", "email", email, "window", s.lockout.Window)
		return ErrLockedOut.WithMessage(fmt.Sprintf("Account locked for %s due to multiple failed login attempts.", describeDuration(s.lockout.Window)))
	case errors.Is(err, login.ErrAccountLocked):
		slog.Info("login rejected, account locked", "email", email)
		return ErrLockedOut
	case errors.Is(err, login.ErrPasswordResetRequired):
		slog.Info("login rejected, password reset required", "email", email)
		return ErrResetRequired
	case errors.Is(err, login.ErrInvalidCredentials):
		slog.Info("login rejected, invalid password", "email", email)
		return ErrInvalidCredentials
	default:
		slog.Error("attempt tracker failed", "email", email, "err", err)
		return internalError(err, "failed to check login attempts")
	}
}

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
	"github.com/tendant/hrconnect-auth/pkg/notification"
	"github.com/tendant/hrconnect-auth/pkg/passwordreset"
)

// ResetRequestResult describes the PIN issued by RequestPasswordReset.
type ResetRequestResult struct {
	Pin       string
	ExpiresAt time.Time
}

// CompleteResetParams are the inputs of CompletePasswordReset.
type CompleteResetParams struct {
	Email           string
	Pin             string
	NewPassword     string
	ConfirmPassword string
}

// RequestPasswordReset issues a PIN for email and sends it by notification.
// A failed dispatch is returned as an error; the stored PIN then expires unused.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (ResetRequestResult, error) {
	email = account.NormalizeEmail(email)
	if !s.inDomain(email) {
		return ResetRequestResult{}, s.domainError()
	}

	acct, err := s.findAccount(ctx, email, "User with this email not found.")
	if err != nil {
		return ResetRequestResult{}, err
	}

	pin, err := generatePin()
	if err != nil {
		return ResetRequestResult{}, internalError(err, "failed to generate pin")
	}
	expiresAt := s.now().Add(s.pinTTL)

	if _, err := s.resets.CreatePin(ctx, acct.ID, acct.Email, pin, expiresAt); err != nil {
		slog.Error("failed to store reset pin", "email", email, "err", err)
		return ResetRequestResult{}, internalError(err, "failed to store reset pin")
	}

	data := notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Pin":      pin,
			"ValidFor": describeDuration(s.pinTTL),
		},
	}
	if err := s.dispatcher.Send(ctx, notification.PasswordResetPinNotice, data); err != nil {
		slog.Error("failed to send reset pin", "email", email, "err", err)
		return ResetRequestResult{}, internalError(err, "failed to send reset pin")
	}

	slog.Info("reset pin issued", "email", email, "expires_at", expiresAt)
	return ResetRequestResult{Pin: pin, ExpiresAt: expiresAt}, nil
}

// VerifyPin checks that pin is currently valid for email. It does not consume the PIN.
func (s *AuthService) VerifyPin(ctx context.Context, email, pin string) error {
	email = account.NormalizeEmail(email)
	if !s.inDomain(email) {
		return ErrValidation.WithMessage("Invalid email.")
	}
	if err := s.throttle(email); err != nil {
		return err
	}
	_, err := s.findValidPin(ctx, email, pin)
	return err
}

// CompletePasswordReset consumes a valid PIN and replaces the account's
// password. The replaced hash joins the password history and the login
// attempt state for the account is cleared.
func (s *AuthService) CompletePasswordReset(ctx context.Context, params CompleteResetParams) error {
	email := account.NormalizeEmail(params.Email)
	if !s.inDomain(email) {
		return s.domainError()
	}
	if strings.TrimSpace(params.Pin) == "" || params.NewPassword == "" {
		return ErrValidation.WithMessage("Email, PIN and new password are required.")
	}
	if err := s.policyChecker.CheckPasswordComplexity(params.NewPassword); err != nil {
		slog.Info("new password rejected by policy", "email", email, "reason", err)
		if errors.Is(err, login.ErrPasswordTooLong) {
			return ErrPasswordComplexity.WithMessage(fmt.Sprintf("Password must be at most %d bytes long.", s.policyChecker.GetPolicy().MaxBytes))
		}
		return ErrPasswordComplexity.WithDetail("reason", err.Error())
	}
	if params.NewPassword != params.ConfirmPassword {
		return ErrValidation.WithMessage("Passwords do not match.")
	}
	if err := s.throttle(email); err != nil {
		return err
	}

	resetPin, err := s.findValidPin(ctx, email, params.Pin)
	if err != nil {
		return err
	}

	acct, err := s.findAccount(ctx, email, "User not found.")
	if err != nil {
		return err
	}

	reused, err := s.inHistory(ctx, acct.ID, params.NewPassword)
	if err != nil {
		return err
	}
	if reused {
		slog.Info("new password found in history", "email", email)
		return ErrPasswordReuse
	}

	newHash, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	// A concurrent second use of the same PIN loses here and writes nothing.
	err = s.resets.CompleteReset(ctx, passwordreset.PasswordChange{
		PinID:     resetPin.ID,
		AccountID: acct.ID,
		OldHash:   acct.PasswordHash,
		NewHash:   newHash,
	})
	if err != nil {
		if errors.Is(err, passwordreset.ErrPinNotFound) {
			return ErrInvalidOrExpiredPin
		}
		return internalError(err, "failed to update password")
	}

	if err := s.tracker.Reset(ctx, email); err != nil {
		slog.Error("failed to clear login attempts after reset", "email", email, "err", err)
	}

	slog.Info("password reset completed", "email", email)
	return nil
}

// CleanupExpiredPins deletes unused PINs that have expired and returns how many went.
func (s *AuthService) CleanupExpiredPins(ctx context.Context) (int64, error) {
	n, err := s.resets.DeleteExpiredPins(ctx, s.now())
	if err != nil {
		return 0, internalError(err, "failed to delete expired pins")
	}
	if n > 0 {
		slog.Info("expired reset pins deleted", "count", n)
	}
	return n, nil
}

// RunPinSweeper calls CleanupExpiredPins every interval until ctx is done.
func (s *AuthService) RunPinSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pin sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.CleanupExpiredPins(ctx); err != nil && ctx.Err() == nil {
				slog.Error("pin sweep failed", "err", err)
			}
		}
	}
}

func (s *AuthService) findAccount(ctx context.Context, email, notFoundMessage string) (account.Account, error) {
	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, ErrNotFound.WithMessage(notFoundMessage)
		}
		slog.Error("failed to look up account", "email", email, "err", err)
		return account.Account{}, internalError(err, "failed to look up account")
	}
	return acct, nil
}

func (s *AuthService) findValidPin(ctx context.Context, email, pin string) (passwordreset.ResetPin, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return passwordreset.ResetPin{}, ErrInvalidOrExpiredPin
	}
	resetPin, err := s.resets.FindValidPin(ctx, email, pin, s.now())
	if err != nil {
		if errors.Is(err, passwordreset.ErrPinNotFound) {
			slog.Info("invalid or expired reset pin", "email", email)
			return passwordreset.ResetPin{}, ErrInvalidOrExpiredPin
		}
		return passwordreset.ResetPin{}, internalError(err, "failed to look up reset pin")
	}
	return resetPin, nil
}

// inHistory verifies password against every stored hash. Salted hashes of
// the same password differ, so a byte comparison would never match.
func (s *AuthService) inHistory(ctx context.Context, accountID int64, password string) (bool, error) {
	history, err := s.resets.ListPasswordHistory(ctx, accountID)
	if err != nil {
		return false, internalError(err, "failed to load password history")
	}
	for _, h := range history {
		ok, err := s.hasher.Verify(password, h.PasswordHash)
		if err != nil {
			return false, internalError(err, "failed to check password history")
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *AuthService) throttle(email string) error {
	if s.pinLimiter != nil && !s.pinLimiter.Allow(email) {
		slog.Warn("pin attempts throttled", "email", email)
		return ErrTooManyAttempts
	}
	return nil
}

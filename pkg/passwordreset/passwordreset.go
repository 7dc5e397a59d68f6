// Package passwordreset stores one-time reset PINs and the password history
// used to block reuse.
package passwordreset

import (
	"context"
	"errors"
	"time"
)

// ResetPin is a one-time code sent to an account's email.
type ResetPin struct {
	ID        int64
	AccountID int64
	Email     string
	Pin       string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// HistoryEntry is a password hash the account used before.
type HistoryEntry struct {
	ID           int64
	AccountID    int64
	PasswordHash string
	ChangedAt    time.Time
}

// PasswordChange is the set of writes that completes a reset.
type PasswordChange struct {
	PinID     int64
	AccountID int64
	OldHash   string
	NewHash   string
}

// ErrPinNotFound is returned when no unused, unexpired PIN matches.
var ErrPinNotFound = errors.New("reset pin not found")

// PasswordUpdater stores a new password hash on an account.
type PasswordUpdater interface {
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

// PinRepository persists reset PINs.
type PinRepository interface {
	CreatePin(ctx context.Context, accountID int64, email, pin string, expiresAt time.Time) (ResetPin, error)

	// FindValidPin returns the newest PIN for email matching pin that is
	// unused and expires strictly after now.
	FindValidPin(ctx context.Context, email, pin string, now time.Time) (ResetPin, error)

	// MarkPinUsed consumes the PIN. It fails with ErrPinNotFound when the
	// PIN was already used, so only one caller can consume it.
	MarkPinUsed(ctx context.Context, id int64) error

	// DeleteExpiredPins removes unused PINs with expires_at at or before now.
	// Used PINs are kept as a record of completed resets.
	DeleteExpiredPins(ctx context.Context, now time.Time) (int64, error)
}

// HistoryRepository persists previous password hashes.
type HistoryRepository interface {
	AddPasswordHistory(ctx context.Context, accountID int64, passwordHash string) error
	ListPasswordHistory(ctx context.Context, accountID int64) ([]HistoryEntry, error)
}

// Repository is the full storage surface of the reset flow.
type Repository interface {
	PinRepository
	HistoryRepository

	// CompleteReset consumes the PIN, appends OldHash to history and stores
	// NewHash on the account, all or nothing. A PIN that was already used
	// fails with ErrPinNotFound.
	CompleteReset(ctx context.Context, change PasswordChange) error
}

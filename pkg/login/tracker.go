// Package login holds the credential primitives used at sign-in: password
// hashing, the complexity policy and the failed-attempt lockout tracker.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned by RecordFailure while below the threshold.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked means the lockout window has not elapsed yet.
	ErrAccountLocked = errors.New("account locked")

	// ErrLockoutStarted is returned by the failure that reached the threshold.
	// It matches ErrAccountLocked.
	ErrLockoutStarted = fmt.Errorf("%w: failure threshold reached", ErrAccountLocked)

	// ErrPasswordResetRequired means the lockout elapsed and only a password reset clears it.
	ErrPasswordResetRequired = errors.New("password reset required")

	// ErrTrackerUnavailable wraps backend failures of a shared tracker.
	ErrTrackerUnavailable = errors.New("attempt tracker unavailable")
)

// LockoutPolicy configures when accounts lock.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
}

// DefaultLockoutPolicy locks after three failures for sixty seconds.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: 3, Window: 60 * time.Second}
}

// AttemptState is the per-account lockout record. The zero value is an
// account in good standing.
type AttemptState struct {
	Failures      int        `json:"failures"`
	LockoutEnd    *time.Time `json:"lockout_end,omitempty"`
	ResetRequired bool       `json:"reset_required"`
}

// Locked reports whether now falls inside the lockout window.
func (s AttemptState) Locked(now time.Time) bool {
	return s.LockoutEnd != nil && now.Before(*s.LockoutEnd)
}

// AttemptTracker records failed sign-ins per account key. Every method is a
// single atomic step for its key.
type AttemptTracker interface {
	// Check gates an attempt before the password is verified. It returns
	// ErrAccountLocked or ErrPasswordResetRequired when the attempt must be
	// rejected, and nil otherwise. It never counts a failure.
	Check(ctx context.Context, key string) error

	// RecordFailure gates the attempt again and, if still allowed, counts the
	// failure. It always returns a non-nil rejection: ErrLockoutStarted when
	// this failure reached the threshold, ErrAccountLocked when a lockout was
	// already running, ErrPasswordResetRequired when a reset is pending and
	// ErrInvalidCredentials otherwise.
	RecordFailure(ctx context.Context, key string) error

	// RecordSuccess gates the attempt and clears the record when allowed.
	RecordSuccess(ctx context.Context, key string) error

	// Reset clears the record unconditionally. Used after a password reset.
	Reset(ctx context.Context, key string) error

	// State returns the stored record and whether one exists.
	State(ctx context.Context, key string) (AttemptState, bool, error)
}

// gate decides whether an attempt may proceed. The returned state may carry
// the reset-required flag when the lockout has just been found elapsed.
func (p LockoutPolicy) gate(st AttemptState, now time.Time) (AttemptState, bool, error) {
	if st.LockoutEnd == nil {
		return st, false, nil
	}
	if now.Before(*st.LockoutEnd) {
		return st, false, ErrAccountLocked
	}
	if st.Failures >= p.Threshold {
		changed := !st.ResetRequired
		st.ResetRequired = true
		return st, changed, ErrPasswordResetRequired
	}
	return st, false, nil
}

// fail counts a failure on a state that already passed gate.
func (p LockoutPolicy) fail(st AttemptState, now time.Time) (AttemptState, error) {
	st.Failures++
	if st.Failures >= p.Threshold {
		end := now.Add(p.Window)
		st.LockoutEnd = &end
		st.ResetRequired = false
		return st, ErrLockoutStarted
	}
	return st, ErrInvalidCredentials
}

package auth

import (
	apperrors "github.com/tendant/hrconnect-auth/pkg/errors"
)

// Domain errors returned by AuthService. Match them with errors.Is; the
// message of the returned error may be more specific than the sentinel's.
var (
	// ErrValidation covers malformed input, a foreign email domain and weak passwords.
	ErrValidation = apperrors.New(apperrors.ErrCodeValidationFailed, "Invalid request.")

	// ErrNotFound is only surfaced by the reset flow, never by login.
	ErrNotFound = apperrors.New(apperrors.ErrCodeUserNotFound, "User not found.")

	// ErrInvalidCredentials covers a wrong password and an unknown account alike.
	ErrInvalidCredentials = apperrors.New(apperrors.ErrCodeInvalidCredentials, "Invalid email or password.")

	ErrLockedOut = apperrors.New(apperrors.ErrCodeUserLocked, "Account is locked. Try again later.")

	ErrResetRequired = apperrors.New(apperrors.ErrCodePasswordResetRequired, "Account locked. Please reset your password.")

	// ErrPasswordComplexity refines ErrValidation; errors.Is matches both.
	ErrPasswordComplexity = apperrors.Wrap(ErrValidation, apperrors.ErrCodePasswordComplexity, complexityMessage)

	ErrInvalidOrExpiredPin = apperrors.New(apperrors.ErrCodePinInvalid, "Invalid or expired PIN.")

	ErrPasswordReuse = apperrors.New(apperrors.ErrCodePasswordReused, "You cannot reuse a previously used password.")

	// ErrTooManyAttempts is returned when PIN checks for an email are throttled.
	ErrTooManyAttempts = apperrors.New(apperrors.ErrCodeRateLimitExceeded, "Too many PIN attempts. Please try again later.")
)

const complexityMessage = "Password does not meet complexity requirements. Minimum 8 chars, include uppercase, lowercase, digit and special character."

func internalError(err error, message string) error {
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, message)
}

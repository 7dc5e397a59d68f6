package login

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// PasswordPolicy defines the requirements for password complexity
type PasswordPolicy struct {
	MinLength          int
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
	// MaxBytes caps the encoded length; bcrypt rejects more than 72 bytes. Zero means no cap.
	MaxBytes int
}

// DefaultPasswordPolicy requires eight characters with upper, lower, digit and symbol.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:          8,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireDigit:       true,
		RequireSpecialChar: true,
		MaxBytes:           72,
	}
}

// PasswordPolicyChecker defines the interface for checking password complexity
type PasswordPolicyChecker interface {
	CheckPasswordComplexity(password string) error
	GetPolicy() *PasswordPolicy
}

// ErrPasswordTooLong is returned when a password exceeds PasswordPolicy.MaxBytes.
var ErrPasswordTooLong = errors.New("password is too long")

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// DefaultPasswordPolicyChecker implements the PasswordPolicyChecker interface
type DefaultPasswordPolicyChecker struct {
	policy *PasswordPolicy
}

func NewDefaultPasswordPolicyChecker(policy *PasswordPolicy) *DefaultPasswordPolicyChecker {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	return &DefaultPasswordPolicyChecker{policy: policy}
}

// CheckPasswordComplexity returns the first rule the password breaks, or nil.
func (pc *DefaultPasswordPolicyChecker) CheckPasswordComplexity(password string) error {
	if utf8.RuneCountInString(password) < pc.policy.MinLength {
		return fmt.Errorf("password must be at least %d characters long", pc.policy.MinLength)
	}
	if pc.policy.MaxBytes > 0 && len(password) > pc.policy.MaxBytes {
		return fmt.Errorf("%w: must be at most %d bytes long", ErrPasswordTooLong, pc.policy.MaxBytes)
	}
	if pc.policy.RequireUppercase && !upperRe.MatchString(password) {
		return errors.New("password must contain at least one uppercase letter")
	}
	if pc.policy.RequireLowercase && !lowerRe.MatchString(password) {
		return errors.New("password must contain at least one lowercase letter")
	}
	if pc.policy.RequireDigit && !digitRe.MatchString(password) {
		return errors.New("password must contain at least one digit")
	}
	if pc.policy.RequireSpecialChar && !specialRe.MatchString(password) {
		return errors.New("password must contain at least one special character")
	}
	return nil
}

func (pc *DefaultPasswordPolicyChecker) GetPolicy() *PasswordPolicy {
	return pc.policy
}

// Package account stores the credential records that the login and password
// reset flows operate on.
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level carried in issued tokens.
type Role string

const (
	RoleNormalUser Role = "NormalUser"
	RoleSuperUser  Role = "SuperUser"
)

// ParseRole accepts the stored role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch {
	case strings.EqualFold(s, string(RoleNormalUser)):
		return RoleNormalUser, nil
	case strings.EqualFold(s, string(RoleSuperUser)):
		return RoleSuperUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// Account is a user that can sign in.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account whose email is taken.
	ErrAccountExists = errors.New("account already exists")
)

// NormalizeEmail trims and lower-cases an address so that lookups and lockout
// keys agree regardless of how the user typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

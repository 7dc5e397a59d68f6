package api

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserDto struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDto `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse omits the PIN when the handle is configured to hide it.
type ForgotPasswordResponse struct {
	Message   string    `json:"message"`
	Pin       string    `json:"pin,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyPinRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Pin             string `json:"pin"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MeResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code   string   `json:"code,omitempty"`
	Errors []string `json:"errors"`
}

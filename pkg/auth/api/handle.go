package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/auth"
	apperrors "github.com/tendant/hrconnect-auth/pkg/errors"
)

type Handle struct {
	service   *auth.AuthService
	exposePin bool
}

type Option func(*Handle)

// WithExposePin controls whether the forgot-password response echoes the
// issued PIN. It is on by default; the expiry is always returned.
func WithExposePin(expose bool) Option {
	return func(h *Handle) {
		h.exposePin = expose
	}
}

func NewHandle(service *auth.AuthService, opts ...Option) Handle {
	h := Handle{service: service, exposePin: true}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Handler mounts the public auth routes and the token protected ones.
func Handler(h Handle, tokenAuth *jwtauth.JWTAuth) http.Handler {
	r := chi.NewRouter()

	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/verify-pin", h.VerifyPin)
	r.Post("/reset-password", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(AuthUserMiddleware)

		r.Get("/me", h.Me)
		r.With(RequireRole(account.RoleSuperUser.String())).Post("/admin/cleanup-pins", h.CleanupPins)
	})

	return r
}

// Login handles POST /login
func (h Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var user UserDto
	if err := copier.Copy(&user, &result.Account); err != nil {
		slog.Error("Failed to copy account", "err", err)
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{Token: result.Token, User: user})
}

// ForgotPassword handles POST /forgot-password
func (h Handle) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}

	result, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := ForgotPasswordResponse{Message: "PIN sent to your email.", ExpiresAt: result.ExpiresAt}
	if h.exposePin {
		resp.Pin = result.Pin
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// VerifyPin handles POST /verify-pin
func (h Handle) VerifyPin(w http.ResponseWriter, r *http.Request) {
	var req VerifyPinRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}

	if err := h.service.VerifyPin(r.Context(), req.Email, req.Pin); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "PIN verified. You can now reset your password."})
}

// ResetPassword handles POST /reset-password
func (h Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}

	err := h.service.CompletePasswordReset(r.Context(), auth.CompleteResetParams{
		Email:           req.Email,
		Pin:             req.Pin,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password reset successfully."})
}

// Me handles GET /me
func (h Handle) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r)
	if !ok {
		renderError(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "Unauthorized."))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, MeResponse{Email: user.Email, Role: user.Role})
}

// CleanupPins handles POST /admin/cleanup-pins
func (h Handle) CleanupPins(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.CleanupExpiredPins(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, CleanupResponse{Deleted: n})
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.Info("Failed to decode request body", "err", err)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{
		Code:   string(apperrors.ErrCodeValidationFailed),
		Errors: []string{"Invalid request body."},
	})
}

// renderError writes err with the status of its code. Uncoded and internal
// errors are reported with a generic message.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.ErrCodeInternal
	status := http.StatusInternalServerError
	message := ""
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		code, status, message = appErr.Code, appErr.HTTPStatusCode(), appErr.Message
	}

	if status >= http.StatusInternalServerError || message == "" {
		slog.Error("Request failed", "path", r.URL.Path, "err", err)
		code = apperrors.ErrCodeInternal
		status = http.StatusInternalServerError
		message = "An unexpected error occurred."
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: string(code), Errors: []string{message}})
}

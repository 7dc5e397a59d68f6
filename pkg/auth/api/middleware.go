package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/lestrrat-go/jwx/v2/jwt"

	apperrors "github.com/tendant/hrconnect-auth/pkg/errors"
)

// AuthUser is the caller identified by a verified bearer token.
type AuthUser struct {
	Email string
	Role  string
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", u.Email),
		slog.String("role", u.Role),
	)
}

type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "hrconnect context value " + k.name
}

var AuthUserKey = &contextKey{"AuthUser"}

// NewTokenAuth verifies HS256 tokens signed with key that carry the given
// issuer and audience.
func NewTokenAuth(key []byte, issuer, audience string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", key, nil, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
}

// AuthUserMiddleware loads the subject and role claims verified by jwtauth
// into the request context.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			renderError(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "Unauthorized."))
			return
		}

		user := AuthUser{Email: token.Subject()}
		if role, ok := claims["role"].(string); ok {
			user.Role = role
		}
		if user.Email == "" {
			renderError(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "Unauthorized."))
			return
		}

		slog.Debug("authenticated user", "user", user)
		ctx := context.WithValue(r.Context(), AuthUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthUser returns the user stored by AuthUserMiddleware.
func GetAuthUser(r *http.Request) (AuthUser, bool) {
	user, ok := r.Context().Value(AuthUserKey).(AuthUser)
	return user, ok
}

// RequireRole rejects callers whose role claim is not role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetAuthUser(r)
			if !ok || user.Role != role {
				slog.Warn("role check failed", "path", r.URL.Path, "required", role)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, ErrorResponse{
					Code:   string(apperrors.ErrCodeForbidden),
					Errors: []string{"Forbidden."},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

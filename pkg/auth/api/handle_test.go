package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/hrconnect-auth/pkg/account"
	"github.com/tendant/hrconnect-auth/pkg/auth"
	"github.com/tendant/hrconnect-auth/pkg/login"
	"github.com/tendant/hrconnect-auth/pkg/notification"
	"github.com/tendant/hrconnect-auth/pkg/passwordreset"
	"github.com/tendant/hrconnect-auth/pkg/tokengenerator"
)

const (
	userEmail     = "jane.doe@singular.co.za"
	adminEmail    = "admin@singular.co.za"
	startPassword = "Initial#Pass1"
)

type testServer struct {
	handler  http.Handler
	notifier *notification.MockNotifier
	resets   *passwordreset.InMemoryRepository
	tokens   *tokengenerator.JwtTokenGenerator
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()

	hasher := login.NewBcryptHasher(bcrypt.MinCost)
	accounts := account.NewInMemoryRepository()
	hash, err := hasher.Hash(startPassword)
	require.NoError(t, err)
	_, err = accounts.Create(context.Background(), userEmail, hash, account.RoleNormalUser)
	require.NoError(t, err)
	_, err = accounts.Create(context.Background(), adminEmail, hash, account.RoleSuperUser)
	require.NoError(t, err)

	ts := &testServer{
		notifier: &notification.MockNotifier{},
		resets:   passwordreset.NewInMemoryRepository(accounts),
	}
	ts.tokens, err = tokengenerator.NewJwtTokenGenerator("api-test-secret", "hrconnect", "hrconnect-clients", time.Hour)
	require.NoError(t, err)

	svc := auth.NewAuthService(accounts, ts.resets, notification.NewNotificationManager(ts.notifier), ts.tokens,
		auth.WithPasswordHasher(hasher))
	ts.handler = Handler(NewHandle(svc, opts...), NewTokenAuth(ts.tokens.Key(), "hrconnect", "hrconnect-clients"))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/login", LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[LoginResponse](t, rr).Token
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/login", LoginRequest{Email: userEmail, Password: startPassword}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[LoginResponse](t, rr)
	assert.NotEmpty(t, resp.Token)
	assert.NotZero(t, resp.User.ID)
	assert.Equal(t, userEmail, resp.User.Email)
	assert.Equal(t, "NormalUser", resp.User.Role)

	claims, err := ts.tokens.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, userEmail, claims.Subject)
}

func TestLoginErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"malformed body", "{", http.StatusBadRequest, "Invalid request body."},
		{"missing password", LoginRequest{Email: userEmail}, http.StatusBadRequest, "Email and password are required."},
		{"foreign domain", LoginRequest{Email: "jane@gmail.com", Password: startPassword}, http.StatusBadRequest, "Email must be a @singular.co.za address."},
		{"unknown account", LoginRequest{Email: "nobody@singular.co.za", Password: startPassword}, http.StatusUnauthorized, "Invalid email or password."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/login", tt.body, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, []string{tt.message}, decode[ErrorResponse](t, rr).Errors)
		})
	}
}

func TestLoginLockout(t *testing.T) {
	ts := newTestServer(t)
	wrong := LoginRequest{Email: userEmail, Password: "Wrong#Pass1"}

	for i := 0; i < 2; i++ {
		rr := ts.do(t, http.MethodPost, "/login", wrong, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decode[ErrorResponse](t, rr).Code)
	}

	rr := ts.do(t, http.MethodPost, "/login", wrong, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "USER_LOCKED", resp.Code)
	assert.Equal(t, []string{"Account locked for 60 seconds due to multiple failed login attempts."}, resp.Errors)

	rr = ts.do(t, http.MethodPost, "/login", LoginRequest{Email: userEmail, Password: startPassword}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, []string{"Account is locked. Try again later."}, decode[ErrorResponse](t, rr).Errors)
}

func TestPasswordResetEndpoints(t *testing.T) {
	ts := newTestServer(t, WithExposePin(true))

	rr := ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: userEmail}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	forgot := decode[ForgotPasswordResponse](t, rr)
	assert.Equal(t, "PIN sent to your email.", forgot.Message)
	require.Len(t, forgot.Pin, 4)
	require.NotNil(t, forgot.ExpiresAt)
	assert.True(t, forgot.ExpiresAt.After(time.Now()))

	rr = ts.do(t, http.MethodPost, "/verify-pin", VerifyPinRequest{Email: userEmail, Pin: forgot.Pin}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PIN verified. You can now reset your password.", decode[MessageResponse](t, rr).Message)

	weak := ResetPasswordRequest{Email: userEmail, Pin: forgot.Pin, NewPassword: "weak", ConfirmPassword: "weak"}
	rr = ts.do(t, http.MethodPost, "/reset-password", weak, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "PASSWORD_COMPLEXITY", decode[ErrorResponse](t, rr).Code)

	reset := ResetPasswordRequest{Email: userEmail, Pin: forgot.Pin, NewPassword: "Fresh#Pass2", ConfirmPassword: "Fresh#Pass2"}
	rr = ts.do(t, http.MethodPost, "/reset-password", reset, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Password reset successfully.", decode[MessageResponse](t, rr).Message)

	rr = ts.do(t, http.MethodPost, "/reset-password", reset, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"Invalid or expired PIN."}, decode[ErrorResponse](t, rr).Errors)

	ts.login(t, userEmail, "Fresh#Pass2")

	// the first password is now in history
	rr = ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: userEmail}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	pin := decode[ForgotPasswordResponse](t, rr).Pin
	rr = ts.do(t, http.MethodPost, "/reset-password", ResetPasswordRequest{
		Email: userEmail, Pin: pin, NewPassword: startPassword, ConfirmPassword: startPassword,
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"You cannot reuse a previously used password."}, decode[ErrorResponse](t, rr).Errors)
}

func TestForgotPasswordReturnsPinAndExpiry(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: userEmail}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Equal(t, "PIN sent to your email.", raw["message"])
	assert.Regexp(t, `^\d{4}$`, raw["pin"])
	assert.Contains(t, raw, "expiresAt")

	resp := decode[ForgotPasswordResponse](t, rr)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestForgotPasswordHidesPinWhenDisabled(t *testing.T) {
	ts := newTestServer(t, WithExposePin(false))

	rr := ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: userEmail}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "pin")
	assert.Contains(t, raw, "expiresAt")
	assert.False(t, decode[ForgotPasswordResponse](t, rr).ExpiresAt.IsZero())

	sent, ok := ts.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, userEmail, sent.Data.To)
}

func TestForgotPasswordErrors(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: "nobody@singular.co.za"}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []string{"User with this email not found."}, decode[ErrorResponse](t, rr).Errors)

	rr = ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: "jane@gmail.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	ts.notifier.Err = errors.New("smtp down")
	rr = ts.do(t, http.MethodPost, "/forgot-password", ForgotPasswordRequest{Email: userEmail}, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.Equal(t, []string{"An unexpected error occurred."}, resp.Errors)
}

func TestVerifyPinErrors(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/verify-pin", VerifyPinRequest{Email: userEmail, Pin: "0000"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"Invalid or expired PIN."}, decode[ErrorResponse](t, rr).Errors)

	rr = ts.do(t, http.MethodPost, "/verify-pin", VerifyPinRequest{Email: "jane@gmail.com", Pin: "1234"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"Invalid email."}, decode[ErrorResponse](t, rr).Errors)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(t, http.MethodGet, "/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := ts.login(t, userEmail, startPassword)
	rr = ts.do(t, http.MethodGet, "/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	me := decode[MeResponse](t, rr)
	assert.Equal(t, userEmail, me.Email)
	assert.Equal(t, "NormalUser", me.Role)
}

func TestMeRejectsForeignIssuer(t *testing.T) {
	ts := newTestServer(t)

	other, err := tokengenerator.NewJwtTokenGenerator("api-test-secret", "someone-else", "hrconnect-clients", time.Hour)
	require.NoError(t, err)
	token, _, err := other.GenerateToken(userEmail, "NormalUser")
	require.NoError(t, err)

	rr := ts.do(t, http.MethodGet, "/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCleanupPinsRequiresSuperUser(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/admin/cleanup-pins", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	userToken := ts.login(t, userEmail, startPassword)
	rr = ts.do(t, http.MethodPost, "/admin/cleanup-pins", nil, userToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	_, err := ts.resets.CreatePin(context.Background(), 1, userEmail, "1234", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	adminToken := ts.login(t, adminEmail, startPassword)
	rr = ts.do(t, http.MethodPost, "/admin/cleanup-pins", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(1), decode[CleanupResponse](t, rr).Deleted)
	assert.Empty(t, ts.resets.Pins())
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/auth"
	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/ratelimit"
)

// ---- mock implementations ----

type mockAuthService struct {
	loginFn        func(username, secret string) (*auth.Session, error)
	logoutFn       func(subject string) error
	requestResetFn func(email string) (string, error)
	confirmResetFn func(token, newSecret string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, secret string) (*auth.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(username, secret)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAuthService) Logout(ctx context.Context, subject string) error {
	if m.logoutFn != nil {
		return m.logoutFn(subject)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAuthService) RequestReset(ctx context.Context, email string) (string, error) {
	if m.requestResetFn != nil {
		return m.requestResetFn(email)
	}
	return "", fmt.Errorf("not configured")
}

func (m *mockAuthService) ConfirmReset(ctx context.Context, token, newSecret string) error {
	if m.confirmResetFn != nil {
		return m.confirmResetFn(token, newSecret)
	}
	return fmt.Errorf("not configured")
}

type mockLimiter struct {
	err error
}

func (m *mockLimiter) Check(ctx context.Context, key string, class ratelimit.Class) error {
	return m.err
}

// ---- helpers ----

func newAuthTestRouter(service AuthService, limiter RateLimiter, authUserID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if authUserID != "" {
		r.Use(fakeAuth(authUserID))
	}
	h := NewAuthHandler(service, limiter)
	v1 := r.Group("/v1/auth")
	v1.POST("/login", h.Login)
	v1.POST("/logout", h.Logout)
	v1.POST("/reset-password/request", h.RequestReset)
	v1.POST("/reset-password/reset", h.ConfirmReset)
	return r
}

// ---- tests ----

func TestLogin(t *testing.T) {
	session := &auth.Session{Token: "signed-token", ExpiresIn: 30 * time.Minute}

	tests := []struct {
		name           string
		body           interface{}
		loginFn        func(username, secret string) (*auth.Session, error)
		limiterErr     error
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]interface{}{"username": "jsmith", "pin": "1234"},
			loginFn:        func(username, secret string) (*auth.Session, error) { return session, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "unauthorized - wrong pin",
			body: map[string]interface{}{"username": "jsmith", "pin": "9999"},
			loginFn: func(username, secret string) (*auth.Session, error) {
				return nil, domain.ErrUnauthorized
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - pin not four digits",
			body:           map[string]interface{}{"username": "jsmith", "pin": "12345"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing username",
			body:           map[string]interface{}{"pin": "1234"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too many requests",
			body:           map[string]interface{}{"username": "jsmith", "pin": "1234"},
			limiterErr:     &domain.RateLimitError{RetryAfter: time.Minute},
			expectedStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(
				&mockAuthService{loginFn: tt.loginFn},
				&mockLimiter{err: tt.limiterErr},
				"",
			)
			w := doRequest(router, http.MethodPost, "/v1/auth/login", tt.body, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestLogout(t *testing.T) {
	var revoked string
	router := newAuthTestRouter(
		&mockAuthService{logoutFn: func(subject string) error {
			revoked = subject
			return nil
		}},
		&mockLimiter{},
		"usr-001",
	)

	w := doRequest(router, http.MethodPost, "/v1/auth/logout", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if revoked != "usr-001" {
		t.Errorf("expected logout for usr-001, got %q", revoked)
	}
}

func TestRequestReset(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		requestResetFn func(email string) (string, error)
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]interface{}{"email": "jsmith@example.com"},
			requestResetFn: func(email string) (string, error) { return "reset-token", nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - invalid email",
			body:           map[string]interface{}{"email": "not-an-email"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found - unknown email",
			body: map[string]interface{}{"email": "ghost@example.com"},
			requestResetFn: func(email string) (string, error) {
				return "", domain.ErrUserNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(
				&mockAuthService{requestResetFn: tt.requestResetFn},
				&mockLimiter{},
				"",
			)
			w := doRequest(router, http.MethodPost, "/v1/auth/reset-password/request", tt.body, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestConfirmReset(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		confirmResetFn func(token, newSecret string) error
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]interface{}{"token": "reset-token", "new_pin": "5678"},
			confirmResetFn: func(token, newSecret string) error { return nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unauthorized - expired token",
			body:           map[string]interface{}{"token": "reset-token", "new_pin": "5678"},
			confirmResetFn: func(token, newSecret string) error { return domain.ErrExpiredToken },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized - superseded token",
			body:           map[string]interface{}{"token": "reset-token", "new_pin": "5678"},
			confirmResetFn: func(token, newSecret string) error { return domain.ErrRevokedToken },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - weak pin",
			body:           map[string]interface{}{"token": "reset-token", "new_pin": "56"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(
				&mockAuthService{confirmResetFn: tt.confirmResetFn},
				&mockLimiter{},
				"",
			)
			w := doRequest(router, http.MethodPost, "/v1/auth/reset-password/reset", tt.body, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

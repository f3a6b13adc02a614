package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"jobtrackr/internal/apperrors"
)

// mockService is a hand-rolled Service for handler tests.
type mockService struct {
	loginFn  func(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	signupFn func(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	meFn     func(ctx context.Context, userID string) (*Profile, error)
}

func (m *mockService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return nil, apperrors.NewAuth(apperrors.AuthInvalidCredentials, errors.New("no login stub"))
}

func (m *mockService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, req)
	}
	return nil, errors.New("no signup stub")
}

func (m *mockService) Logout(ctx context.Context, sessionID string) error { return nil }

func (m *mockService) ResetPassword(ctx context.Context, email string) error { return nil }

func (m *mockService) ConfirmResetPassword(ctx context.Context, token, newPassword string) error {
	return nil
}

func (m *mockService) Me(ctx context.Context, userID string) (*Profile, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return nil, apperrors.ErrNotAuthenticated
}

func (m *mockService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*Profile, error) {
	return nil, errors.New("no update stub")
}

func (m *mockService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return nil
}

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(svc, logger)

	r := gin.New()
	RegisterRoutes(r, h, func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-Test-User"))
		c.Next()
	})
	return r
}

func TestLoginHandler_SetsSessionCookie(t *testing.T) {
	svc := &mockService{
		loginFn: func(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
			return &AuthResponse{
				User:          &Profile{ID: "u-1", Email: req.Email},
				SessionID:     "sess-1",
				SessionMaxAge: 3600,
			}, nil
		},
	}
	r := newTestRouter(svc)

	body := strings.NewReader(`{"email":"a@b.com","password":"longenough","remember":true}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if sessionCookie.Value != "sess-1" {
		t.Errorf("expected cookie value sess-1, got %s", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be http-only")
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	r := newTestRouter(&mockService{})

	body := strings.NewReader(`{"email":"a@b.com","password":"wrong-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestLoginHandler_ValidationErrorNamesField(t *testing.T) {
	svc := &mockService{
		loginFn: func(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
			return nil, apperrors.NewValidation("password", "must be at least 6 characters")
		},
	}
	r := newTestRouter(svc)

	body := strings.NewReader(`{"email":"a@b.com","password":"1234"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "validation_failed" {
		t.Errorf("expected validation_failed, got %v", resp["error"])
	}
	if resp["field"] != "password" {
		t.Errorf("expected field password, got %v", resp["field"])
	}
}

func TestSignupHandler_DuplicateEmailConflict(t *testing.T) {
	svc := &mockService{
		signupFn: func(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
			return nil, apperrors.NewAuth(apperrors.AuthAlreadyRegistered, errors.New("duplicate"))
		},
	}
	r := newTestRouter(svc)

	body := strings.NewReader(`{"email":"taken@b.com","password":"longenough"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "email_taken" {
		t.Errorf("expected email_taken, got %v", resp["error"])
	}
}

func TestSignupHandler_Created(t *testing.T) {
	svc := &mockService{
		signupFn: func(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
			return &AuthResponse{
				User:          &Profile{ID: "u-1", Email: req.Email, Username: "new"},
				SessionID:     "sess-1",
				SessionMaxAge: 3600,
			}, nil
		},
	}
	r := newTestRouter(svc)

	body := strings.NewReader(`{"email":"new@b.com","password":"longenough"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}
}

func TestLogoutHandler_NoCookieIsOK(t *testing.T) {
	r := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("logout without a cookie should still succeed, got %d", w.Code)
	}
}

func TestMeHandler_Unauthorized(t *testing.T) {
	r := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestMeHandler_ReturnsProfile(t *testing.T) {
	svc := &mockService{
		meFn: func(ctx context.Context, userID string) (*Profile, error) {
			return &Profile{ID: userID, Email: "a@b.com", Username: "a"}, nil
		},
	}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("X-Test-User", "u-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var profile Profile
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if profile.ID != "u-1" {
		t.Errorf("expected profile for u-1, got %s", profile.ID)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/internal/auth"
	"github.com/cartaviva/cartaviva-backend/internal/users"
	"github.com/cartaviva/cartaviva-backend/pkg/config"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "cartaviva-test",
		ExpirationMinutes: 15,
	}
}

type stubAuthService struct {
	login   *auth.LoginResponse
	refresh *auth.RefreshResponse
	err     error

	loggedOutID string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) AdminLogin(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return s.refresh, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOutID = accessID
	return s.err
}

type stubRegisterService struct {
	user *users.UserDTO
	err  error
}

func (s stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return s.user, s.err
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         &users.UserDTO{ID: uuid.New(), Email: "misty@example.com"},
	}}
	handler := AuthLogin(svc, nil)

	body := `{"email":"misty@example.com","password":"starmie123"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/login", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-CV-Token") != "access" {
		t.Fatalf("access token header not set")
	}
	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "refresh" {
		t.Fatalf("unexpected refresh token")
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, nil)

	body := `{"email":"misty@example.com","password":"wrong"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/login", body))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLoginRejectsMalformedEmail(t *testing.T) {
	handler := AuthLogin(&stubAuthService{}, nil)

	body := `{"email":"not-an-email","password":"whatever1"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/login", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRefreshRequiresBothTokens(t *testing.T) {
	handler := AuthRefresh(&stubAuthService{}, nil)

	body := `{"accessToken":"only-one"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/refresh", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRegisterCreatedAndLoggedIn(t *testing.T) {
	user := &users.UserDTO{ID: uuid.New(), Email: "brock@example.com"}
	reg := stubRegisterService{user: user}
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: user}}
	handler := AuthRegister(reg, svc, nil)

	body := `{"displayName":"Brock","email":"brock@example.com","password":"onix12345","acceptTos":true}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/register", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if resp.Header().Get("X-CV-Token") != "access" {
		t.Fatalf("access token header not set")
	}
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	reg := stubRegisterService{err: pkgerrors.New(pkgerrors.CodeAlreadyDone, "email already registered")}
	handler := AuthRegister(reg, &stubAuthService{}, nil)

	body := `{"displayName":"Brock","email":"brock@example.com","password":"onix12345","acceptTos":true}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/register", body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAuthLogoutMissingToken(t *testing.T) {
	handler := AuthLogout(&stubAuthService{}, jwtTestConfig(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	usersvc "github.com/cartaviva/cartaviva-backend/internal/users"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
)

type stubUsersService struct {
	me      *usersvc.UserDTO
	profile *usersvc.PublicProfileDTO
	err     error
}

func (s stubUsersService) Me(ctx context.Context, userID uuid.UUID) (*usersvc.UserDTO, error) {
	return s.me, s.err
}

func (s stubUsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, dto usersvc.UpdateProfileDTO) (*usersvc.UserDTO, error) {
	return s.me, s.err
}

func (s stubUsersService) PublicProfile(ctx context.Context, userID uuid.UUID) (*usersvc.PublicProfileDTO, error) {
	return s.profile, s.err
}

func TestGetMeSuccess(t *testing.T) {
	uid := uuid.New()
	handler := GetMe(stubUsersService{me: &usersvc.UserDTO{ID: uid, Email: "ash@example.com"}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/users/me", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data usersvc.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != uid {
		t.Fatalf("unexpected user id: %s", envelope.Data.ID)
	}
}

func TestGetMeMissingUserContext(t *testing.T) {
	handler := GetMe(stubUsersService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUpdateMeRejectsEmptyDisplayName(t *testing.T) {
	handler := UpdateMe(stubUsersService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPatch, "/api/v1/users/me", `{"displayName":""}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetPublicProfileNotFound(t *testing.T) {
	handler := GetPublicProfile(stubUsersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "user not found")}, nil)

	req := withPathParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/x", nil), "userId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

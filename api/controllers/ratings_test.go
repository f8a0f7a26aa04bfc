package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	ratingsvc "github.com/cartaviva/cartaviva-backend/internal/ratings"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type stubRatingsService struct {
	rating *models.Rating
	page   *ratingsvc.ListResult
	err    error

	submitInput *ratingsvc.SubmitInput
}

func (s *stubRatingsService) Submit(ctx context.Context, input ratingsvc.SubmitInput) (*models.Rating, error) {
	s.submitInput = &input
	return s.rating, s.err
}

func (s *stubRatingsService) ListForUser(ctx context.Context, rateeID uuid.UUID, params pagination.Params) (*ratingsvc.ListResult, error) {
	return s.page, s.err
}

func TestSubmitRatingSuccess(t *testing.T) {
	txnID := uuid.New()
	svc := &stubRatingsService{rating: &models.Rating{
		ID:            uuid.New(),
		TransactionID: txnID,
		RaterID:       uuid.New(),
		RateeID:       uuid.New(),
		Direction:     enums.RatingDirectionBuyerOnSeller,
		Stars:         5,
	}}
	handler := SubmitRating(svc, nil)

	body := `{"transactionId":"` + txnID.String() + `","stars":5,"comment":"smooth trade"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/ratings", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.submitInput == nil || svc.submitInput.TransactionID != txnID {
		t.Fatalf("submit input not forwarded")
	}
	var envelope struct {
		Data ratingResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Stars != 5 {
		t.Fatalf("unexpected stars: %d", envelope.Data.Stars)
	}
}

func TestSubmitRatingRejectsOutOfRangeStars(t *testing.T) {
	handler := SubmitRating(&stubRatingsService{}, nil)

	body := `{"transactionId":"` + uuid.NewString() + `","stars":7}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/ratings", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubmitRatingTwiceConflicts(t *testing.T) {
	svc := &stubRatingsService{err: pkgerrors.New(pkgerrors.CodeAlreadyDone, "already rated")}
	handler := SubmitRating(svc, nil)

	body := `{"transactionId":"` + uuid.NewString() + `","stars":4}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/ratings", body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestListUserRatingsInvalidUserID(t *testing.T) {
	handler := ListUserRatings(&stubRatingsService{}, nil)

	req := withPathParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/x/ratings", nil), "userId", "not-a-uuid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListUserRatingsEmptyPage(t *testing.T) {
	handler := ListUserRatings(&stubRatingsService{page: &ratingsvc.ListResult{}}, nil)

	req := withPathParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/x/ratings", nil), "userId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data ratingPageResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Ratings == nil {
		t.Fatalf("ratings should serialize as empty array, not null")
	}
}

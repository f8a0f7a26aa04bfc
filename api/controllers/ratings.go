package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/api/responses"
	"github.com/cartaviva/cartaviva-backend/api/validators"
	ratingsvc "github.com/cartaviva/cartaviva-backend/internal/ratings"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type ratingsService interface {
	Submit(ctx context.Context, input ratingsvc.SubmitInput) (*models.Rating, error)
	ListForUser(ctx context.Context, rateeID uuid.UUID, params pagination.Params) (*ratingsvc.ListResult, error)
}

type submitRatingRequest struct {
	TransactionID uuid.UUID      `json:"transactionId" validate:"required"`
	Stars         int            `json:"stars" validate:"required,min=1,max=5"`
	Comment       *string        `json:"comment,omitempty"`
	Categories    map[string]int `json:"categories,omitempty"`
}

// SubmitRating records the caller's review of their counterparty.
func SubmitRating(svc ratingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ratings service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitRatingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rating, err := svc.Submit(r.Context(), ratingsvc.SubmitInput{
			RaterID:       uid,
			TransactionID: body.TransactionID,
			Stars:         body.Stars,
			Comment:       body.Comment,
			Categories:    body.Categories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ratingFromModel(rating))
	}
}

// ListUserRatings pages the reviews left for one user.
func ListUserRatings(svc ratingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ratings service unavailable"))
			return
		}

		rateeID, err := pathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.ListForUser(r.Context(), rateeID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := ratingPageResponse{NextCursor: page.NextCursor, Ratings: []ratingResponse{}}
		for i := range page.Ratings {
			out.Ratings = append(out.Ratings, ratingFromModel(&page.Ratings[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

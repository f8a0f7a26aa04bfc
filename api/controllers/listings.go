package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/api/responses"
	"github.com/cartaviva/cartaviva-backend/api/validators"
	listingsvc "github.com/cartaviva/cartaviva-backend/internal/listings"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type listingsService interface {
	CreateListing(ctx context.Context, input listingsvc.CreateListingInput) (*models.Listing, error)
	UpdateListing(ctx context.Context, input listingsvc.UpdateListingInput) (*models.Listing, error)
	ArchiveListing(ctx context.Context, sellerID, listingID uuid.UUID) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error)
	Browse(ctx context.Context, params pagination.Params, filters listingsvc.BrowseFilters) (*listingsvc.ListResult, error)
}

type createListingRequest struct {
	CardID    string          `json:"cardId" validate:"required"`
	CardName  string          `json:"cardName" validate:"required"`
	CardImage *string         `json:"cardImage,omitempty"`
	Condition string          `json:"condition" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
}

// CreateListing publishes a new card offer for the caller.
func CreateListing(svc listingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		condition, err := enums.ParseCardCondition(strings.TrimSpace(body.Condition))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
			return
		}

		listing, err := svc.CreateListing(r.Context(), listingsvc.CreateListingInput{
			SellerID:  uid,
			CardID:    body.CardID,
			CardName:  body.CardName,
			CardImage: body.CardImage,
			Condition: condition,
			Price:     body.Price,
			Quantity:  body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listingFromModel(listing))
	}
}

// BrowseListings pages active listings with optional filters.
func BrowseListings(svc listingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
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

		var filters listingsvc.BrowseFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("condition")); raw != "" {
			condition, err := enums.ParseCardCondition(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
				return
			}
			filters.Condition = &condition
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("priceMin")); raw != "" {
			value, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priceMin"))
				return
			}
			filters.PriceMin = &value
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("priceMax")); raw != "" {
			value, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priceMax"))
				return
			}
			filters.PriceMax = &value
		}
		filters.Query = validators.SanitizeString(r.URL.Query().Get("q"), 120)

		page, err := svc.Browse(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listingPageResponse{
			Listings:   listingsFromModels(page.Listings),
			NextCursor: page.NextCursor,
		})
	}
}

// GetListing returns a single listing by id.
func GetListing(svc listingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		listingID, err := pathID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.GetListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listingFromModel(listing))
	}
}

// MyListings returns everything the caller is selling.
func MyListings(svc listingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listings, err := svc.ListBySeller(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string][]listingResponse{"listings": listingsFromModels(listings)})
	}
}

type updateListingRequest struct {
	CardImage *string          `json:"cardImage,omitempty"`
	Condition *string          `json:"condition,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// UpdateListing edits listing metadata for its owner.
func UpdateListing(svc listingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := listingsvc.UpdateListingInput{
			SellerID:  uid,
			ListingID: listingID,
			CardImage: body.CardImage,
			Price:     body.Price,
		}
		if body.Condition != nil {
			condition, err := enums.ParseCardCondition(strings.TrimSpace(*body.Condition))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
				return
			}
			input.Condition = &condition
		}

		listing, err := svc.UpdateListing(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listingFromModel(listing))
	}
}

// ArchiveListing takes the caller's listing off the market.
func ArchiveListing(svc listingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ArchiveListing(r.Context(), uid, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

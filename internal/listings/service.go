package listings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

// Service exposes seller listing management and the public catalog.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds a listings service with the required dependencies.
func NewService(repo *Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// CreateListingInput carries the seller-provided listing fields.
type CreateListingInput struct {
	SellerID  uuid.UUID
	CardID    string
	CardName  string
	CardImage *string
	Condition enums.CardCondition
	Price     decimal.Decimal
	Quantity  int
}

// CreateListing publishes a new card offer.
func (s *Service) CreateListing(ctx context.Context, input CreateListingInput) (*models.Listing, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.CardID == "" || input.CardName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card id and name required")
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid card condition")
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	listing := &models.Listing{
		ID:           uuid.New(),
		SellerID:     input.SellerID,
		CardID:       input.CardID,
		CardName:     input.CardName,
		CardImage:    input.CardImage,
		Condition:    input.Condition,
		Price:        input.Price,
		AvailableQty: input.Quantity,
		Status:       enums.ListingStatusActive,
	}
	created, err := s.repo.Create(ctx, listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert listing")
	}
	s.logg.Info(s.logg.WithField(ctx, "listing_id", created.ID.String()), "listing created")
	return created, nil
}

// UpdateListingInput carries mutable listing fields. Nil means unchanged.
type UpdateListingInput struct {
	SellerID  uuid.UUID
	ListingID uuid.UUID
	CardImage *string
	Condition *enums.CardCondition
	Price     *decimal.Decimal
}

// UpdateListing edits listing metadata. Stock counters move only
// through the inventory ledger, never through this path.
func (s *Service) UpdateListing(ctx context.Context, input UpdateListingInput) (*models.Listing, error) {
	listing, err := s.ownedListing(ctx, input.SellerID, input.ListingID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.CardImage != nil {
		updates["card_image"] = *input.CardImage
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid card condition")
		}
		updates["condition"] = *input.Condition
	}
	if input.Price != nil {
		if input.Price.IsNegative() || input.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price"] = *input.Price
	}
	if len(updates) == 0 {
		return listing, nil
	}

	if err := s.repo.Update(ctx, listing.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update listing")
	}
	return s.repo.FindByID(ctx, listing.ID)
}

// ArchiveListing withdraws the offer from the catalog. Existing
// reservations stay intact and still release or commit normally.
func (s *Service) ArchiveListing(ctx context.Context, sellerID, listingID uuid.UUID) error {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return err
	}
	if listing.Status == enums.ListingStatusArchived {
		return pkgerrors.New(pkgerrors.CodeAlreadyDone, "listing already archived")
	}
	if err := s.repo.Update(ctx, listing.ID, map[string]any{"status": enums.ListingStatusArchived}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "archive listing")
	}
	return nil
}

// GetListing returns a single listing for detail pages.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load listing")
	}
	return listing, nil
}

// ListBySeller returns the seller's own listings.
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list seller listings")
	}
	return rows, nil
}

// Browse pages the public catalog.
func (s *Service) Browse(ctx context.Context, params pagination.Params, filters BrowseFilters) (*ListResult, error) {
	result, err := s.repo.Browse(ctx, browseQuery{Pagination: params, Filters: filters})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "browse listings")
	}
	return result, nil
}

func (s *Service) ownedListing(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	listing, err := s.repo.FindByID(ctx, listingID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load listing")
	}
	if listing.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing does not belong to seller")
	}
	return listing, nil
}

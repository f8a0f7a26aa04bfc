package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
)

const snapshotTTL = 7 * 24 * time.Hour

type listingLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Listing, error)
}

// snapshotStore mirrors carts into redis for session continuity. The
// DB rows stay authoritative; snapshot failures only log.
type snapshotStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartSnapshotKey(buyerID string) string
}

// Service implements cart mutation and vendor grouping.
type Service struct {
	repo      *Repository
	listings  listingLoader
	snapshots snapshotStore
	logg      *logger.Logger
}

// NewService builds a cart service. The snapshot store is optional.
func NewService(repo *Repository, listings listingLoader, snapshots snapshotStore, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, listings: listings, snapshots: snapshots, logg: logg}, nil
}

// Line is one cart entry joined with its live listing data.
type Line struct {
	ListingID    uuid.UUID           `json:"listingId"`
	SellerID     uuid.UUID           `json:"sellerId"`
	CardID       string              `json:"cardId"`
	CardName     string              `json:"cardName"`
	CardImage    *string             `json:"cardImage,omitempty"`
	Condition    enums.CardCondition `json:"condition"`
	UnitPrice    decimal.Decimal     `json:"unitPrice"`
	Quantity     int                 `json:"quantity"`
	AvailableQty int                 `json:"availableQty"`
	LineTotal    decimal.Decimal     `json:"lineTotal"`
}

// Cart is the buyer's full cart view.
type Cart struct {
	Lines     []Line          `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"itemCount"`
}

// VendorGroup is the per-seller slice of the cart that checkout
// converts into a single transaction.
type VendorGroup struct {
	SellerID  uuid.UUID       `json:"sellerId"`
	Lines     []Line          `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"itemCount"`
}

// AddToCart upserts the buyer's line for a listing. The availability
// check here is advisory; the binding check happens at reservation.
func (s *Service) AddToCart(ctx context.Context, buyerID, listingID uuid.UUID, qty int) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	listing, err := s.loadActiveListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "cannot buy your own listing")
	}

	line, err := s.repo.FindLine(ctx, buyerID, listingID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart line")
	}
	if err == gorm.ErrRecordNotFound {
		line = &models.CartItem{
			ID:        uuid.New(),
			BuyerID:   buyerID,
			ListingID: listingID,
			SellerID:  listing.SellerID,
			Quantity:  0,
		}
	}

	// The summed quantity must fit current availability. A short add
	// fails without touching the stored line, reporting how many more
	// units could still be added.
	if line.Quantity+qty > listing.AvailableQty {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
			WithDetails(map[string]any{
				"listing_id": listingID,
				"requested":  qty,
				"in_cart":    line.Quantity,
				"available":  listing.AvailableQty,
				"addable":    listing.AvailableQty - line.Quantity,
			})
	}

	line.Quantity += qty
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save cart line")
	}
	return s.cartView(ctx, buyerID)
}

// UpdateQuantity sets an absolute quantity; zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, buyerID, listingID uuid.UUID, qty int) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if qty == 0 {
		return s.RemoveFromCart(ctx, buyerID, listingID)
	}

	listing, err := s.loadActiveListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if qty > listing.AvailableQty {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
			WithDetails(map[string]any{
				"listing_id": listingID,
				"requested":  qty,
				"available":  listing.AvailableQty,
			})
	}

	line, err := s.repo.FindLine(ctx, buyerID, listingID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart line")
	}
	line.Quantity = qty
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save cart line")
	}
	return s.cartView(ctx, buyerID)
}

// RemoveFromCart drops one listing from the cart.
func (s *Service) RemoveFromCart(ctx context.Context, buyerID, listingID uuid.UUID) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.DeleteLine(ctx, buyerID, listingID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete cart line")
	}
	return s.cartView(ctx, buyerID)
}

// ClearCart empties the buyer's cart.
func (s *Service) ClearCart(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.DeleteByBuyer(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear cart")
	}
	s.dropSnapshot(ctx, buyerID)
	return nil
}

// GetCart returns the joined cart view.
func (s *Service) GetCart(ctx context.Context, buyerID uuid.UUID) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.cartView(ctx, buyerID)
}

// GroupByVendor splits the cart into per-seller groups for checkout.
func (s *Service) GroupByVendor(ctx context.Context, buyerID uuid.UUID) ([]VendorGroup, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := s.cartView(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	order := make([]uuid.UUID, 0)
	bySeller := make(map[uuid.UUID]*VendorGroup)
	for _, line := range cart.Lines {
		group, ok := bySeller[line.SellerID]
		if !ok {
			group = &VendorGroup{SellerID: line.SellerID, Subtotal: decimal.Zero}
			bySeller[line.SellerID] = group
			order = append(order, line.SellerID)
		}
		group.Lines = append(group.Lines, line)
		group.Subtotal = group.Subtotal.Add(line.LineTotal)
		group.ItemCount += line.Quantity
	}

	groups := make([]VendorGroup, 0, len(order))
	for _, sellerID := range order {
		groups = append(groups, *bySeller[sellerID])
	}
	return groups, nil
}

func (s *Service) loadActiveListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load listing")
	}
	if listing.Status == enums.ListingStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing no longer available")
	}
	return listing, nil
}

func (s *Service) cartView(ctx context.Context, buyerID uuid.UUID) (*Cart, error) {
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list cart lines")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ListingID)
	}
	byID, err := s.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart listings")
	}

	cart := &Cart{Lines: make([]Line, 0, len(rows)), Subtotal: decimal.Zero}
	for _, row := range rows {
		listing, ok := byID[row.ListingID]
		if !ok {
			// Listing deleted underneath the cart; drop the stale line.
			continue
		}
		lineTotal := listing.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		cart.Lines = append(cart.Lines, Line{
			ListingID:    listing.ID,
			SellerID:     listing.SellerID,
			CardID:       listing.CardID,
			CardName:     listing.CardName,
			CardImage:    listing.CardImage,
			Condition:    listing.Condition,
			UnitPrice:    listing.Price,
			Quantity:     row.Quantity,
			AvailableQty: listing.AvailableQty,
			LineTotal:    lineTotal,
		})
		cart.Subtotal = cart.Subtotal.Add(lineTotal)
		cart.ItemCount += row.Quantity
	}

	s.writeSnapshot(ctx, buyerID, cart)
	return cart, nil
}

func (s *Service) writeSnapshot(ctx context.Context, buyerID uuid.UUID, cart *Cart) {
	if s.snapshots == nil {
		return
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return
	}
	key := s.snapshots.CartSnapshotKey(buyerID.String())
	if err := s.snapshots.Set(ctx, key, payload, snapshotTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart snapshot write failed")
	}
}

func (s *Service) dropSnapshot(ctx context.Context, buyerID uuid.UUID) {
	if s.snapshots == nil {
		return
	}
	key := s.snapshots.CartSnapshotKey(buyerID.String())
	if err := s.snapshots.Del(ctx, key); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart snapshot delete failed")
	}
}

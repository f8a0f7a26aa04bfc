package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
)

// Repository persists cart lines keyed (buyer_id, listing_id).
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindLine loads the buyer's line for one listing.
func (r *Repository) FindLine(ctx context.Context, buyerID, listingID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	err := r.db.WithContext(ctx).
		First(&line, "buyer_id = ? AND listing_id = ?", buyerID, listingID).
		Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// SaveLine inserts or updates a cart line.
func (r *Repository) SaveLine(ctx context.Context, line *models.CartItem) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteLine removes one listing from the buyer's cart.
func (r *Repository) DeleteLine(ctx context.Context, buyerID, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
		Delete(&models.CartItem{}).
		Error
}

// ListByBuyer returns every cart line for the buyer, oldest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListByBuyerSeller returns the buyer's lines for one seller.
func (r *Repository) ListByBuyerSeller(ctx context.Context, buyerID, sellerID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND seller_id = ?", buyerID, sellerID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// DeleteByBuyer clears the whole cart.
func (r *Repository) DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&models.CartItem{}).
		Error
}

// DeleteByBuyerSeller removes one vendor group, used after checkout
// converts the group into a transaction.
func (r *Repository) DeleteByBuyerSeller(ctx context.Context, buyerID, sellerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND seller_id = ?", buyerID, sellerID).
		Delete(&models.CartItem{}).
		Error
}

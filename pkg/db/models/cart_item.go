package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one buyer's pending quantity for a listing. Rows are
// keyed (buyer_id, listing_id) so concurrent updates hit a single row.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:ux_cart_items_buyer_listing"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:ux_cart_items_buyer_listing"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/pkg/enums"
)

// Listing is a seller's offer of a specific card, with its live stock counters.
type Listing struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	CardID       string              `gorm:"column:card_id;type:text;not null"`
	CardName     string              `gorm:"column:card_name;type:text;not null"`
	CardImage    *string             `gorm:"column:card_image;type:text"`
	Condition    enums.CardCondition `gorm:"column:condition;type:card_condition;not null"`
	Price        decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	AvailableQty int                 `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int                 `gorm:"column:reserved_qty;not null;default:0"`
	Status       enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/pkg/enums"
)

// TransactionLineItem snapshots one reserved listing at checkout time.
// Card fields are copied so later listing edits never rewrite history.
type TransactionLineItem struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID           `gorm:"column:transaction_id;type:uuid;not null;index"`
	ListingID     uuid.UUID           `gorm:"column:listing_id;type:uuid;not null"`
	CardID        string              `gorm:"column:card_id;type:text;not null"`
	CardName      string              `gorm:"column:card_name;type:text;not null"`
	CardImage     *string             `gorm:"column:card_image;type:text"`
	Condition     enums.CardCondition `gorm:"column:condition;type:card_condition;not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal     decimal.Decimal     `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/types"
)

// Transaction is a buyer/seller agreement walked through the delivery
// and payment lifecycle. Disputed is a parallel flag, not a status.
type Transaction struct {
	ID       uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID  uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	Status   enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending_seller_response'"`
	Disputed bool                    `gorm:"column:disputed;not null;default:false"`

	// StatusChangedAt anchors the SLA window for the current status and
	// is rewritten by every guarded transition.
	StatusChangedAt time.Time `gorm:"column:status_changed_at;not null"`

	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	ItemCount int             `gorm:"column:item_count;not null"`
	Timeline  types.Timeline  `gorm:"column:timeline;type:jsonb"`

	// Buyer checkout input.
	ContactMethod enums.ContactMethod `gorm:"column:contact_method;type:contact_method;not null;default:'whatsapp'"`
	BuyerNotes    *string             `gorm:"column:buyer_notes;type:text"`

	// Seller response.
	OriginStore           *string `gorm:"column:origin_store;type:text"`
	EstimatedDeliveryDays *int    `gorm:"column:estimated_delivery_days"`
	SellerNotes           *string `gorm:"column:seller_notes;type:text"`

	// Delivery and payment evidence.
	DeliveryProofImage *string              `gorm:"column:delivery_proof_image;type:text"`
	PaymentMethod      *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method"`
	PaymentProofImage  *string              `gorm:"column:payment_proof_image;type:text"`
	PaymentAmount      *decimal.Decimal     `gorm:"column:payment_amount;type:numeric(12,2)"`

	// Buyer receipt.
	DestinationStore  *string                  `gorm:"column:destination_store;type:text"`
	SatisfactionLevel *enums.SatisfactionLevel `gorm:"column:satisfaction_level;type:satisfaction_level"`

	CancellationReason *string `gorm:"column:cancellation_reason;type:text"`
	BuyerRated         bool    `gorm:"column:buyer_rated;not null;default:false"`
	SellerRated        bool    `gorm:"column:seller_rated;not null;default:false"`

	Items     []TransactionLineItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

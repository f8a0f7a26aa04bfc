package transactions

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
)

// LifecycleEvent is the payload emitted on every status transition.
type LifecycleEvent struct {
	TransactionID uuid.UUID               `json:"transactionId"`
	BuyerID       uuid.UUID               `json:"buyerId"`
	SellerID      uuid.UUID               `json:"sellerId"`
	Status        enums.TransactionStatus `json:"status"`
	Disputed      bool                    `json:"disputed"`
	Total         decimal.Decimal         `json:"total"`
	ItemCount     int                     `json:"itemCount"`
	ContactMethod enums.ContactMethod     `json:"contactMethod"`
	Reason        *string                 `json:"reason,omitempty"`
}

// SoldOutEvent marks a listing whose availability just hit zero.
type SoldOutEvent struct {
	ListingID uuid.UUID `json:"listingId"`
	SellerID  uuid.UUID `json:"sellerId"`
	CardName  string    `json:"cardName"`
}

func lifecyclePayload(txn *models.Transaction, status enums.TransactionStatus, reason *string) LifecycleEvent {
	return LifecycleEvent{
		TransactionID: txn.ID,
		BuyerID:       txn.BuyerID,
		SellerID:      txn.SellerID,
		Status:        status,
		Disputed:      txn.Disputed,
		Total:         txn.Total,
		ItemCount:     txn.ItemCount,
		ContactMethod: txn.ContactMethod,
		Reason:        reason,
	}
}

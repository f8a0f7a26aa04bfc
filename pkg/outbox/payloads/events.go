package payloads

import (
	"time"

	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionLifecycleEvent is published on every status transition.
type TransactionLifecycleEvent struct {
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

// TransactionDeadlineNudgeEvent warns that a response window is about to elapse.
type TransactionDeadlineNudgeEvent struct {
	TransactionID    uuid.UUID               `json:"transactionId"`
	BuyerID          uuid.UUID               `json:"buyerId"`
	SellerID         uuid.UUID               `json:"sellerId"`
	Status           enums.TransactionStatus `json:"status"`
	Deadline         time.Time               `json:"deadline"`
	RemainingSeconds int64                   `json:"remainingSeconds"`
}

// RatingSubmittedEvent carries a new review and its direction.
type RatingSubmittedEvent struct {
	RatingID      uuid.UUID             `json:"ratingId"`
	TransactionID uuid.UUID             `json:"transactionId"`
	RaterID       uuid.UUID             `json:"raterId"`
	RateeID       uuid.UUID             `json:"rateeId"`
	Direction     enums.RatingDirection `json:"direction"`
	Stars         int                   `json:"stars"`
}

// DisputeEvent covers both dispute opening and resolution.
type DisputeEvent struct {
	DisputeID     uuid.UUID             `json:"disputeId"`
	TransactionID uuid.UUID             `json:"transactionId"`
	OpenerID      uuid.UUID             `json:"openerId"`
	BuyerID       uuid.UUID             `json:"buyerId"`
	SellerID      uuid.UUID             `json:"sellerId"`
	Type          enums.DisputeType     `json:"type"`
	Severity      enums.DisputeSeverity `json:"severity"`
	Resolution    *string               `json:"resolution,omitempty"`
}

// ListingSoldOutEvent marks a listing whose availability just hit zero.
type ListingSoldOutEvent struct {
	ListingID uuid.UUID `json:"listingId"`
	SellerID  uuid.UUID `json:"sellerId"`
	CardName  string    `json:"cardName"`
}

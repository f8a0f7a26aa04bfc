package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/types"
)

// Transport shapes for persistence models. Models carry gorm tags only,
// so every HTTP payload goes through one of these mappers.

type listingResponse struct {
	ID           uuid.UUID           `json:"id"`
	SellerID     uuid.UUID           `json:"sellerId"`
	CardID       string              `json:"cardId"`
	CardName     string              `json:"cardName"`
	CardImage    *string             `json:"cardImage,omitempty"`
	Condition    enums.CardCondition `json:"condition"`
	Price        decimal.Decimal     `json:"price"`
	AvailableQty int                 `json:"availableQty"`
	ReservedQty  int                 `json:"reservedQty"`
	Status       enums.ListingStatus `json:"status"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func listingFromModel(l *models.Listing) listingResponse {
	return listingResponse{
		ID:           l.ID,
		SellerID:     l.SellerID,
		CardID:       l.CardID,
		CardName:     l.CardName,
		CardImage:    l.CardImage,
		Condition:    l.Condition,
		Price:        l.Price,
		AvailableQty: l.AvailableQty,
		ReservedQty:  l.ReservedQty,
		Status:       l.Status,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func listingsFromModels(items []models.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(items))
	for i := range items {
		out = append(out, listingFromModel(&items[i]))
	}
	return out
}

type listingPageResponse struct {
	Listings   []listingResponse `json:"listings"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type lineItemResponse struct {
	ID        uuid.UUID           `json:"id"`
	ListingID uuid.UUID           `json:"listingId"`
	CardID    string              `json:"cardId"`
	CardName  string              `json:"cardName"`
	CardImage *string             `json:"cardImage,omitempty"`
	Condition enums.CardCondition `json:"condition"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unitPrice"`
	LineTotal decimal.Decimal     `json:"lineTotal"`
}

type transactionResponse struct {
	ID              uuid.UUID               `json:"id"`
	BuyerID         uuid.UUID               `json:"buyerId"`
	SellerID        uuid.UUID               `json:"sellerId"`
	Status          enums.TransactionStatus `json:"status"`
	Disputed        bool                    `json:"disputed"`
	StatusChangedAt time.Time               `json:"statusChangedAt"`
	Total           decimal.Decimal         `json:"total"`
	ItemCount       int                     `json:"itemCount"`
	Timeline        types.Timeline          `json:"timeline,omitempty"`
	ContactMethod   enums.ContactMethod     `json:"contactMethod"`
	BuyerNotes      *string                 `json:"buyerNotes,omitempty"`

	OriginStore           *string `json:"originStore,omitempty"`
	EstimatedDeliveryDays *int    `json:"estimatedDeliveryDays,omitempty"`
	SellerNotes           *string `json:"sellerNotes,omitempty"`

	DeliveryProofImage *string              `json:"deliveryProofImage,omitempty"`
	PaymentMethod      *enums.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentProofImage  *string              `json:"paymentProofImage,omitempty"`
	PaymentAmount      *decimal.Decimal     `json:"paymentAmount,omitempty"`

	DestinationStore  *string                  `json:"destinationStore,omitempty"`
	SatisfactionLevel *enums.SatisfactionLevel `json:"satisfactionLevel,omitempty"`

	CancellationReason *string `json:"cancellationReason,omitempty"`
	BuyerRated         bool    `json:"buyerRated"`
	SellerRated        bool    `json:"sellerRated"`

	Items     []lineItemResponse `json:"items,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func transactionFromModel(t *models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                    t.ID,
		BuyerID:               t.BuyerID,
		SellerID:              t.SellerID,
		Status:                t.Status,
		Disputed:              t.Disputed,
		StatusChangedAt:       t.StatusChangedAt,
		Total:                 t.Total,
		ItemCount:             t.ItemCount,
		Timeline:              t.Timeline,
		ContactMethod:         t.ContactMethod,
		BuyerNotes:            t.BuyerNotes,
		OriginStore:           t.OriginStore,
		EstimatedDeliveryDays: t.EstimatedDeliveryDays,
		SellerNotes:           t.SellerNotes,
		DeliveryProofImage:    t.DeliveryProofImage,
		PaymentMethod:         t.PaymentMethod,
		PaymentProofImage:     t.PaymentProofImage,
		PaymentAmount:         t.PaymentAmount,
		DestinationStore:      t.DestinationStore,
		SatisfactionLevel:     t.SatisfactionLevel,
		CancellationReason:    t.CancellationReason,
		BuyerRated:            t.BuyerRated,
		SellerRated:           t.SellerRated,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
	for i := range t.Items {
		item := &t.Items[i]
		resp.Items = append(resp.Items, lineItemResponse{
			ID:        item.ID,
			ListingID: item.ListingID,
			CardID:    item.CardID,
			CardName:  item.CardName,
			CardImage: item.CardImage,
			Condition: item.Condition,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return resp
}

type transactionPageResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	NextCursor   string                `json:"nextCursor,omitempty"`
}

type ratingResponse struct {
	ID            uuid.UUID             `json:"id"`
	TransactionID uuid.UUID             `json:"transactionId"`
	RaterID       uuid.UUID             `json:"raterId"`
	RateeID       uuid.UUID             `json:"rateeId"`
	Direction     enums.RatingDirection `json:"direction"`
	Stars         int                   `json:"stars"`
	Comment       *string               `json:"comment,omitempty"`
	Categories    types.Ratings         `json:"categories,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func ratingFromModel(r *models.Rating) ratingResponse {
	return ratingResponse{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		RaterID:       r.RaterID,
		RateeID:       r.RateeID,
		Direction:     r.Direction,
		Stars:         r.Stars,
		Comment:       r.Comment,
		Categories:    r.Categories,
		CreatedAt:     r.CreatedAt,
	}
}

type ratingPageResponse struct {
	Ratings    []ratingResponse `json:"ratings"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

type disputeResponse struct {
	ID            uuid.UUID             `json:"id"`
	TransactionID uuid.UUID             `json:"transactionId"`
	OpenerID      uuid.UUID             `json:"openerId"`
	Type          enums.DisputeType     `json:"type"`
	Description   string                `json:"description"`
	Evidence      []string              `json:"evidence,omitempty"`
	Severity      enums.DisputeSeverity `json:"severity"`
	Status        enums.DisputeStatus   `json:"status"`
	Resolution    *string               `json:"resolution,omitempty"`
	ResolvedAt    *time.Time            `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func disputeFromModel(d *models.Dispute) disputeResponse {
	return disputeResponse{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		OpenerID:      d.OpenerID,
		Type:          d.Type,
		Description:   d.Description,
		Evidence:      d.Evidence,
		Severity:      d.Severity,
		Status:        d.Status,
		Resolution:    d.Resolution,
		ResolvedAt:    d.ResolvedAt,
		CreatedAt:     d.CreatedAt,
	}
}

type notificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

func notificationFromModel(n *models.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

type notificationPageResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"nextCursor,omitempty"`
}

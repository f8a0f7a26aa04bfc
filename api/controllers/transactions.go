package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/api/responses"
	"github.com/cartaviva/cartaviva-backend/api/validators"
	txnsvc "github.com/cartaviva/cartaviva-backend/internal/transactions"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type transactionsService interface {
	CreateFromCartGroup(ctx context.Context, input txnsvc.CheckoutInput) (*models.Transaction, error)
	Get(ctx context.Context, partyID, txnID uuid.UUID) (*models.Transaction, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filter txnsvc.ListFilter) (*txnsvc.ListResult, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filter txnsvc.ListFilter) (*txnsvc.ListResult, error)
	Accept(ctx context.Context, input txnsvc.AcceptInput) error
	Reject(ctx context.Context, input txnsvc.RejectInput) error
	ConfirmDelivery(ctx context.Context, input txnsvc.DeliveryInput) error
	ConfirmPaymentReceived(ctx context.Context, input txnsvc.PaymentInput) error
	ConfirmReceipt(ctx context.Context, input txnsvc.ReceiptInput) error
}

type checkoutRequest struct {
	SellerID      uuid.UUID `json:"sellerId" validate:"required"`
	ContactMethod string    `json:"contactMethod" validate:"required"`
	BuyerNotes    *string   `json:"buyerNotes,omitempty"`
}

// Checkout converts the caller's cart group for one seller into a
// transaction with its stock reserved.
func Checkout(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParseContactMethod(strings.TrimSpace(body.ContactMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contact method"))
			return
		}

		txn, err := svc.CreateFromCartGroup(r.Context(), txnsvc.CheckoutInput{
			BuyerID:       uid,
			SellerID:      body.SellerID,
			ContactMethod: method,
			BuyerNotes:    body.BuyerNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transactionFromModel(txn))
	}
}

// ListTransactions pages the caller's transactions. The role query
// parameter picks which side of the table to read.
func ListTransactions(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filter txnsvc.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTransactionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("disputed")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid disputed value"))
				return
			}
			filter.Disputed = &value
		}

		role := strings.TrimSpace(r.URL.Query().Get("role"))
		var page *txnsvc.ListResult
		switch role {
		case "", "buyer":
			page, err = svc.ListForBuyer(r.Context(), uid, params, filter)
		case "seller":
			page, err = svc.ListForSeller(r.Context(), uid, params, filter)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer or seller"))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := transactionPageResponse{NextCursor: page.NextCursor}
		for i := range page.Transactions {
			out.Transactions = append(out.Transactions, transactionFromModel(&page.Transactions[i]))
		}
		if out.Transactions == nil {
			out.Transactions = []transactionResponse{}
		}
		responses.WriteSuccess(w, out)
	}
}

// GetTransaction returns one transaction visible to its parties only.
func GetTransaction(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Get(r.Context(), uid, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactionFromModel(txn))
	}
}

type acceptTransactionRequest struct {
	OriginStore           string  `json:"originStore" validate:"required"`
	EstimatedDeliveryDays int     `json:"estimatedDeliveryDays" validate:"required,min=1"`
	SellerNotes           *string `json:"sellerNotes,omitempty"`
}

// AcceptTransaction is the seller committing to deliver.
func AcceptTransaction(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body acceptTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Accept(r.Context(), txnsvc.AcceptInput{
			SellerID:              uid,
			TransactionID:         txnID,
			OriginStore:           body.OriginStore,
			EstimatedDeliveryDays: body.EstimatedDeliveryDays,
			SellerNotes:           body.SellerNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}

type rejectTransactionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RejectTransaction cancels a pending transaction and releases stock.
func RejectTransaction(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rejectTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Reject(r.Context(), txnsvc.RejectInput{
			SellerID:      uid,
			TransactionID: txnID,
			Reason:        body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "rejected"})
	}
}

type confirmDeliveryRequest struct {
	ProofImage *string `json:"proofImage,omitempty"`
}

// ConfirmDelivery records the seller's shipment proof.
func ConfirmDelivery(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmDeliveryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ConfirmDelivery(r.Context(), txnsvc.DeliveryInput{
			SellerID:      uid,
			TransactionID: txnID,
			ProofImage:    body.ProofImage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "delivered"})
	}
}

type confirmPaymentRequest struct {
	Method     string          `json:"method" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	ProofImage *string         `json:"proofImage,omitempty"`
}

// ConfirmPayment records that the buyer settled out-of-band.
func ConfirmPayment(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(body.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		err = svc.ConfirmPaymentReceived(r.Context(), txnsvc.PaymentInput{
			SellerID:      uid,
			TransactionID: txnID,
			Method:        method,
			ProofImage:    body.ProofImage,
			Amount:        body.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "payment_confirmed"})
	}
}

type confirmReceiptRequest struct {
	DestinationStore  string `json:"destinationStore" validate:"required"`
	SatisfactionLevel string `json:"satisfactionLevel" validate:"required"`
}

// ConfirmReceipt is the buyer's pickup confirmation. Reserved stock is
// burned for good here.
func ConfirmReceipt(svc transactionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmReceiptRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := enums.ParseSatisfactionLevel(strings.TrimSpace(body.SatisfactionLevel))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid satisfaction level"))
			return
		}

		err = svc.ConfirmReceipt(r.Context(), txnsvc.ReceiptInput{
			BuyerID:           uid,
			TransactionID:     txnID,
			DestinationStore:  body.DestinationStore,
			SatisfactionLevel: level,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "receipt_confirmed"})
	}
}

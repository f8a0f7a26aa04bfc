package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/internal/cart"
	"github.com/cartaviva/cartaviva-backend/internal/inventory"
	"github.com/cartaviva/cartaviva-backend/internal/listings"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
	"github.com/cartaviva/cartaviva-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service walks transactions through the lifecycle. Every transition is
// one guarded UPDATE pinned on the expected current status.
type Service struct {
	repo     *Repository
	carts    *cart.Repository
	listings *listings.Repository
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a transaction service with the required dependencies.
func NewService(repo *Repository, carts *cart.Repository, listingsRepo *listings.Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     repo,
		carts:    carts,
		listings: listingsRepo,
		tx:       tx,
		outbox:   publisher,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// WithNow pins the clock, for tests and the cron sweep.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// CheckoutInput is the buyer's conversion of one vendor group into a
// transaction, carrying how the seller should reach them.
type CheckoutInput struct {
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	ContactMethod enums.ContactMethod
	BuyerNotes    *string
}

// CreateFromCartGroup converts one vendor group of the buyer's cart
// into a pending transaction. Reservation, snapshotting, cart cleanup
// and the outbox event all commit or roll back together.
func (s *Service) CreateFromCartGroup(ctx context.Context, input CheckoutInput) (*models.Transaction, error) {
	buyerID, sellerID := input.BuyerID, input.SellerID
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if buyerID == sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "cannot transact with yourself")
	}
	if !input.ContactMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact method")
	}

	var created *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		lines, err := carts.ListByBuyerSeller(ctx, buyerID, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart group")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no cart items for seller")
		}

		requests := make([]inventory.ReservationRequest, 0, len(lines))
		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			requests = append(requests, inventory.ReservationRequest{ListingID: line.ListingID, Qty: line.Quantity})
			ids = append(ids, line.ListingID)
		}

		// All-or-nothing: any short listing aborts the whole transaction
		// and rolls the earlier decrements back.
		if err := inventory.Reserve(ctx, tx, requests); err != nil {
			return err
		}

		byID, err := s.listings.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load listings for snapshot")
		}

		now := s.now().UTC()
		txn := &models.Transaction{
			ID:              uuid.New(),
			BuyerID:         buyerID,
			SellerID:        sellerID,
			Status:          enums.TransactionStatusPendingSellerResponse,
			StatusChangedAt: now,
			Total:           decimal.Zero,
			Timeline:        types.Timeline{}.Stamp(types.TimelineCreated, now),
			ContactMethod:   input.ContactMethod,
			BuyerNotes:      input.BuyerNotes,
		}
		for _, line := range lines {
			listing, ok := byID[line.ListingID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing vanished during checkout")
			}
			lineTotal := listing.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			txn.Items = append(txn.Items, models.TransactionLineItem{
				ID:            uuid.New(),
				TransactionID: txn.ID,
				ListingID:     listing.ID,
				CardID:        listing.CardID,
				CardName:      listing.CardName,
				CardImage:     listing.CardImage,
				Condition:     listing.Condition,
				Quantity:      line.Quantity,
				UnitPrice:     listing.Price,
				LineTotal:     lineTotal,
			})
			txn.Total = txn.Total.Add(lineTotal)
			txn.ItemCount += line.Quantity
		}

		if err := s.repo.WithTx(tx).Insert(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert transaction")
		}
		if err := carts.DeleteByBuyerSeller(ctx, buyerID, sellerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear cart group")
		}

		// The snapshot was read after the reserve, so sold-out statuses
		// here are the ones this reservation caused.
		for _, listing := range byID {
			if listing.Status != enums.ListingStatusSoldOut {
				continue
			}
			err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventListingSoldOut,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: buyerID},
				Data:          SoldOutEvent{ListingID: listing.ID, SellerID: listing.SellerID, CardName: listing.CardName},
			})
			if err != nil {
				return err
			}
		}

		created = txn
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: buyerID},
			Data:          lifecyclePayload(txn, txn.Status, nil),
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "transaction_id", created.ID.String()), "transaction created")
	return created, nil
}

// AcceptInput is the seller's response to a pending transaction.
type AcceptInput struct {
	SellerID              uuid.UUID
	TransactionID         uuid.UUID
	OriginStore           string
	EstimatedDeliveryDays int
	SellerNotes           *string
}

// Accept moves pending_seller_response to accepted_pending_delivery.
func (s *Service) Accept(ctx context.Context, input AcceptInput) error {
	if input.OriginStore == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "origin store required")
	}
	if input.EstimatedDeliveryDays <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery days must be positive")
	}
	return s.transition(ctx, transitionSpec{
		actorID:       input.SellerID,
		actorIsSeller: true,
		transactionID: input.TransactionID,
		from:          enums.TransactionStatusPendingSellerResponse,
		to:            enums.TransactionStatusAcceptedPendingDelivery,
		milestone:     types.TimelineAccepted,
		event:         enums.EventTransactionAccepted,
		updates: map[string]any{
			"origin_store":            input.OriginStore,
			"estimated_delivery_days": input.EstimatedDeliveryDays,
			"seller_notes":            input.SellerNotes,
		},
	})
}

// RejectInput cancels a pending transaction on the seller's behalf.
type RejectInput struct {
	SellerID      uuid.UUID
	TransactionID uuid.UUID
	Reason        string
}

// Reject moves pending_seller_response to cancelled_by_seller and
// releases every reserved line.
func (s *Service) Reject(ctx context.Context, input RejectInput) error {
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	reason := input.Reason
	return s.transition(ctx, transitionSpec{
		actorID:       input.SellerID,
		actorIsSeller: true,
		transactionID: input.TransactionID,
		from:          enums.TransactionStatusPendingSellerResponse,
		to:            enums.TransactionStatusCancelledBySeller,
		milestone:     types.TimelineCancelled,
		event:         enums.EventTransactionRejected,
		eventReason:   &reason,
		releaseStock:  true,
		updates:       map[string]any{"cancellation_reason": input.Reason},
	})
}

// DeliveryInput records the seller's shipment proof.
type DeliveryInput struct {
	SellerID      uuid.UUID
	TransactionID uuid.UUID
	ProofImage    *string
}

// ConfirmDelivery moves accepted_pending_delivery to delivered_pending_payment.
func (s *Service) ConfirmDelivery(ctx context.Context, input DeliveryInput) error {
	return s.transition(ctx, transitionSpec{
		actorID:       input.SellerID,
		actorIsSeller: true,
		transactionID: input.TransactionID,
		from:          enums.TransactionStatusAcceptedPendingDelivery,
		to:            enums.TransactionStatusDeliveredPendingPayment,
		milestone:     types.TimelineDelivered,
		event:         enums.EventTransactionDelivered,
		updates:       map[string]any{"delivery_proof_image": input.ProofImage},
	})
}

// PaymentInput records how the buyer settled out-of-band.
type PaymentInput struct {
	SellerID      uuid.UUID
	TransactionID uuid.UUID
	Method        enums.PaymentMethod
	ProofImage    *string
	Amount        decimal.Decimal
}

// ConfirmPaymentReceived moves delivered_pending_payment to payment_confirmed.
func (s *Service) ConfirmPaymentReceived(ctx context.Context, input PaymentInput) error {
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	return s.transition(ctx, transitionSpec{
		actorID:       input.SellerID,
		actorIsSeller: true,
		transactionID: input.TransactionID,
		from:          enums.TransactionStatusDeliveredPendingPayment,
		to:            enums.TransactionStatusPaymentConfirmed,
		milestone:     types.TimelinePaymentConfirmed,
		event:         enums.EventTransactionPaymentConfirmed,
		updates: map[string]any{
			"payment_method":      input.Method,
			"payment_proof_image": input.ProofImage,
			"payment_amount":      input.Amount,
		},
	})
}

// ReceiptInput records the buyer's pickup confirmation.
type ReceiptInput struct {
	BuyerID           uuid.UUID
	TransactionID     uuid.UUID
	DestinationStore  string
	SatisfactionLevel enums.SatisfactionLevel
}

// ConfirmReceipt moves payment_confirmed to completed_pending_rating
// and burns the reservations for good.
func (s *Service) ConfirmReceipt(ctx context.Context, input ReceiptInput) error {
	if input.DestinationStore == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "destination store required")
	}
	if !input.SatisfactionLevel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid satisfaction level")
	}
	return s.transition(ctx, transitionSpec{
		actorID:       input.BuyerID,
		actorIsSeller: false,
		transactionID: input.TransactionID,
		from:          enums.TransactionStatusPaymentConfirmed,
		to:            enums.TransactionStatusCompletedPendingRating,
		milestone:     types.TimelineReceiptConfirmed,
		event:         enums.EventTransactionReceiptConfirmed,
		commitStock:   true,
		updates: map[string]any{
			"destination_store":  input.DestinationStore,
			"satisfaction_level": input.SatisfactionLevel,
		},
	})
}

// MarkRated flags the rater's side inside the caller's DB transaction
// and completes the lifecycle when both sides have rated.
func (s *Service) MarkRated(ctx context.Context, tx *gorm.DB, txnID uuid.UUID, direction enums.RatingDirection) error {
	repo := s.repo.WithTx(tx)
	txn, err := repo.FindByID(ctx, txnID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload transaction")
	}

	column := "seller_rated"
	if direction == enums.RatingDirectionBuyerOnSeller {
		column = "buyer_rated"
	}
	if err := repo.UpdateFields(ctx, txn.ID, map[string]any{column: true}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark rated")
	}

	// Re-read after the flag write. The row lock serializes concurrent
	// raters, so whichever writer lands second sees both flags set and
	// fires the completion.
	txn, err = repo.FindByID(ctx, txn.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload transaction")
	}
	if !txn.BuyerRated || !txn.SellerRated || txn.Status != enums.TransactionStatusCompletedPendingRating {
		return nil
	}

	now := s.now().UTC()
	moved, err := repo.TransitionStatus(ctx, txn.ID,
		enums.TransactionStatusCompletedPendingRating,
		enums.TransactionStatusCompleted,
		map[string]any{
			"timeline":          txn.Timeline.Stamp(types.TimelineCompleted, now),
			"status_changed_at": now,
		})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "complete transaction")
	}
	if !moved {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionCompleted,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Version:       1,
		Data:          lifecyclePayload(txn, enums.TransactionStatusCompleted, nil),
	})
}

// TimeoutCancel expires an overdue pending or accepted transaction.
// The guard makes a row already moved by its parties a clean no-op.
func (s *Service) TimeoutCancel(ctx context.Context, txnID uuid.UUID, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByID(ctx, txnID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}
		switch txn.Status {
		case enums.TransactionStatusPendingSellerResponse, enums.TransactionStatusAcceptedPendingDelivery:
		default:
			// Moved on since the sweep selected it.
			return nil
		}

		now := s.now().UTC()
		moved, err := repo.TransitionStatus(ctx, txn.ID, txn.Status, enums.TransactionStatusTimeoutCancelled, map[string]any{
			"cancellation_reason": reason,
			"timeline":            txn.Timeline.Stamp(types.TimelineCancelled, now),
			"status_changed_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "timeout transaction")
		}
		if !moved {
			return nil
		}
		for _, item := range txn.Items {
			if err := inventory.Release(ctx, tx, item.ListingID, item.Quantity); err != nil {
				return err
			}
		}
		r := reason
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionTimeoutCancelled,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Data:          lifecyclePayload(txn, enums.TransactionStatusTimeoutCancelled, &r),
		})
	})
}

// AutoCompleteUnrated closes a transaction whose rating window lapsed.
func (s *Service) AutoCompleteUnrated(ctx context.Context, txnID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByID(ctx, txnID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}
		if txn.Status != enums.TransactionStatusCompletedPendingRating {
			return nil
		}

		now := s.now().UTC()
		moved, err := repo.TransitionStatus(ctx, txn.ID,
			enums.TransactionStatusCompletedPendingRating,
			enums.TransactionStatusCompleted,
			map[string]any{
				"timeline":          txn.Timeline.Stamp(types.TimelineCompleted, now),
				"status_changed_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "auto-complete transaction")
		}
		if !moved {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCompleted,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Data:          lifecyclePayload(txn, enums.TransactionStatusCompleted, nil),
		})
	})
}

// Get returns a transaction visible only to its two parties.
func (s *Service) Get(ctx context.Context, partyID, txnID uuid.UUID) (*models.Transaction, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	txn, err := s.repo.FindByID(ctx, txnID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
	}
	if txn.BuyerID != partyID && txn.SellerID != partyID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction does not involve this user")
	}
	return txn, nil
}

// ListForBuyer pages the user's purchases.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filter ListFilter) (*ListResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	result, err := s.repo.ListForBuyer(ctx, buyerID, params, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list buyer transactions")
	}
	return result, nil
}

// ListForSeller pages the user's sales.
func (s *Service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filter ListFilter) (*ListResult, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	result, err := s.repo.ListForSeller(ctx, sellerID, params, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list seller transactions")
	}
	return result, nil
}

type transitionSpec struct {
	actorID       uuid.UUID
	actorIsSeller bool
	transactionID uuid.UUID
	from          enums.TransactionStatus
	to            enums.TransactionStatus
	milestone     string
	event         enums.OutboxEventType
	eventReason   *string
	releaseStock  bool
	commitStock   bool
	updates       map[string]any
}

func (s *Service) transition(ctx context.Context, spec transitionSpec) error {
	if spec.actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if spec.transactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByID(ctx, spec.transactionID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}

		if spec.actorIsSeller && txn.SellerID != spec.actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can perform this action")
		}
		if !spec.actorIsSeller && txn.BuyerID != spec.actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can perform this action")
		}
		if txn.Status != spec.from {
			return transitionConflict(txn.Status, spec.to)
		}

		now := s.now().UTC()
		updates := map[string]any{
			"timeline":          txn.Timeline.Stamp(spec.milestone, now),
			"status_changed_at": now,
		}
		for column, value := range spec.updates {
			updates[column] = value
		}

		moved, err := repo.TransitionStatus(ctx, txn.ID, spec.from, spec.to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update transaction status")
		}
		if !moved {
			// Lost the race: reload for an accurate conflict report.
			current, err := repo.FindByID(ctx, txn.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload transaction")
			}
			return transitionConflict(current.Status, spec.to)
		}

		if spec.releaseStock {
			for _, item := range txn.Items {
				if err := inventory.Release(ctx, tx, item.ListingID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if spec.commitStock {
			for _, item := range txn.Items {
				if err := inventory.Commit(ctx, tx, item.ListingID, item.Quantity); err != nil {
					return err
				}
			}
		}

		actor := &outbox.ActorRef{UserID: spec.actorID}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     spec.event,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Actor:         actor,
			Data:          lifecyclePayload(txn, spec.to, spec.eventReason),
		})
	})
}

func transitionConflict(current, attempted enums.TransactionStatus) error {
	if current == attempted {
		return pkgerrors.New(pkgerrors.CodeAlreadyDone, "transaction already in requested state")
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transition not allowed from current state").
		WithDetails(map[string]any{
			"current":   current,
			"attempted": attempted,
		})
}


package disputes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/internal/transactions"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages disputes. A dispute marks the transaction without
// blocking its lifecycle; only one can be open per transaction.
type Service struct {
	repo    *Repository
	txnRepo *transactions.Repository
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(repo *Repository, txnRepo *transactions.Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if txnRepo == nil {
		return nil, fmt.Errorf("transactions repository required")
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
		repo:    repo,
		txnRepo: txnRepo,
		tx:      tx,
		outbox:  publisher,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// OpenInput raises a dispute on an in-flight transaction.
type OpenInput struct {
	OpenerID      uuid.UUID
	TransactionID uuid.UUID
	Type          enums.DisputeType
	Description   string
	Evidence      []string
}

// DisputeEvent is the outbox payload for dispute opens and resolutions.
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

// Open raises a dispute and flips the transaction's disputed flag.
func (s *Service) Open(ctx context.Context, input OpenInput) (*models.Dispute, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown dispute type")
	}
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute description required")
	}

	var created *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)
		txn, err := txnRepo.FindByID(ctx, input.TransactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}
		if txn.BuyerID != input.OpenerID && txn.SellerID != input.OpenerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only transaction parties can open a dispute")
		}
		if txn.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeNotEligible, "transaction is already closed").
				WithDetails(map[string]any{"status": txn.Status})
		}

		repo := s.repo.WithTx(tx)
		if open, err := repo.FindOpenByTransaction(ctx, txn.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check open disputes")
		} else if open != nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyDone, "dispute already open for this transaction")
		}

		flipped, err := txnRepo.SetDisputed(ctx, txn.ID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "flag transaction disputed")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeAlreadyDone, "dispute already open for this transaction")
		}

		dispute := &models.Dispute{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			OpenerID:      input.OpenerID,
			Type:          input.Type,
			Description:   input.Description,
			Evidence:      input.Evidence,
			Severity:      severityFor(input.Type),
			Status:        enums.DisputeStatusOpen,
		}
		if err := repo.Insert(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert dispute")
		}

		created = dispute
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionDisputed,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.OpenerID},
			Data: DisputeEvent{
				DisputeID:     dispute.ID,
				TransactionID: txn.ID,
				OpenerID:      input.OpenerID,
				BuyerID:       txn.BuyerID,
				SellerID:      txn.SellerID,
				Type:          dispute.Type,
				Severity:      dispute.Severity,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"dispute_id":     created.ID.String(),
		"transaction_id": input.TransactionID.String(),
		"type":           created.Type.String(),
	}), "dispute opened")
	return created, nil
}

// ResolveInput closes an open dispute with an outcome note.
type ResolveInput struct {
	ResolverID uuid.UUID
	DisputeID  uuid.UUID
	Resolution string
}

// Resolve closes the dispute and clears the transaction's disputed
// flag. Either party can resolve.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) error {
	if input.Resolution == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "resolution note required")
	}

	var resolved *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, err := repo.FindByID(ctx, input.DisputeID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load dispute")
		}

		txnRepo := s.txnRepo.WithTx(tx)
		txn, err := txnRepo.FindByID(ctx, dispute.TransactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}
		if txn.BuyerID != input.ResolverID && txn.SellerID != input.ResolverID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only transaction parties can resolve a dispute")
		}

		now := s.now().UTC()
		moved, err := repo.Resolve(ctx, dispute.ID, map[string]any{
			"status":      enums.DisputeStatusResolved,
			"resolution":  input.Resolution,
			"resolved_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "resolve dispute")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeAlreadyDone, "dispute already resolved")
		}

		// Only one dispute can be open, so resolving it clears the flag.
		if _, err := txnRepo.SetDisputed(ctx, txn.ID, false); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear disputed flag")
		}

		resolved = dispute
		resolution := input.Resolution
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionDisputeResolved,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ResolverID},
			Data: DisputeEvent{
				DisputeID:     dispute.ID,
				TransactionID: txn.ID,
				OpenerID:      dispute.OpenerID,
				BuyerID:       txn.BuyerID,
				SellerID:      txn.SellerID,
				Type:          dispute.Type,
				Severity:      dispute.Severity,
				Resolution:    &resolution,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "dispute_id", resolved.ID.String()), "dispute resolved")
	return nil
}

// EscalateOverduePayment opens a high-severity payment dispute on
// behalf of the seller when the buyer sits on a confirmed payment past
// the review window. Used by the timeout sweep; a transaction already
// disputed or moved on is skipped.
func (s *Service) EscalateOverduePayment(ctx context.Context, transactionID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)
		txn, err := txnRepo.FindByID(ctx, transactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}
		if txn.Status != enums.TransactionStatusPaymentConfirmed || txn.Disputed {
			return nil
		}

		flipped, err := txnRepo.SetDisputed(ctx, txn.ID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "flag transaction disputed")
		}
		if !flipped {
			return nil
		}

		dispute := &models.Dispute{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			OpenerID:      txn.SellerID,
			Type:          enums.DisputeTypePaymentIssue,
			Description:   "receipt confirmation overdue after payment review window",
			Severity:      enums.DisputeSeverityHigh,
			Status:        enums.DisputeStatusOpen,
		}
		if err := s.repo.WithTx(tx).Insert(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert dispute")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionDisputed,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Data: DisputeEvent{
				DisputeID:     dispute.ID,
				TransactionID: txn.ID,
				OpenerID:      dispute.OpenerID,
				BuyerID:       txn.BuyerID,
				SellerID:      txn.SellerID,
				Type:          dispute.Type,
				Severity:      dispute.Severity,
			},
		})
	})
}

// ListForTransaction returns a party's view of the dispute history.
func (s *Service) ListForTransaction(ctx context.Context, requesterID, transactionID uuid.UUID) ([]models.Dispute, error) {
	txn, err := s.txnRepo.FindByID(ctx, transactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
	}
	if txn.BuyerID != requesterID && txn.SellerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only transaction parties can view disputes")
	}
	rows, err := s.repo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list disputes")
	}
	return rows, nil
}

func severityFor(disputeType enums.DisputeType) enums.DisputeSeverity {
	switch disputeType {
	case enums.DisputeTypeNotReceived, enums.DisputeTypePaymentIssue:
		return enums.DisputeSeverityHigh
	case enums.DisputeTypeWrongItem:
		return enums.DisputeSeverityMedium
	default:
		return enums.DisputeSeverityLow
	}
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/internal/transactions"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox"
)

const defaultSweepBatchSize = 100

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type outboxExistenceChecker interface {
	Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type overdueReader interface {
	FindOverdue(ctx context.Context, status enums.TransactionStatus, cutoff time.Time, limit int) ([]models.Transaction, error)
}

type transactionLifecycle interface {
	TimeoutCancel(ctx context.Context, transactionID uuid.UUID, reason string) error
	AutoCompleteUnrated(ctx context.Context, transactionID uuid.UUID) error
}

type paymentEscalator interface {
	EscalateOverduePayment(ctx context.Context, transactionID uuid.UUID) error
}

// TransactionTimeoutJobParams configure the deadline sweep.
type TransactionTimeoutJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Reader       overdueReader
	Transactions transactionLifecycle
	Disputes     paymentEscalator
	Outbox       outboxEmitter
	OutboxRepo   outboxExistenceChecker
	BatchSize    int
}

// NewTransactionTimeoutJob builds the cron job that cancels, escalates
// and closes transactions sitting past their response windows, and
// nudges the party whose window is about to run out.
func NewTransactionTimeoutJob(params TransactionTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("overdue reader required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions service required")
	}
	if params.Disputes == nil {
		return nil, fmt.Errorf("disputes service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &transactionTimeoutJob{
		logg:       params.Logger,
		db:         params.DB,
		reader:     params.Reader,
		txns:       params.Transactions,
		disputes:   params.Disputes,
		outbox:     params.Outbox,
		outboxRepo: params.OutboxRepo,
		batchSize:  batchSize,
		now:        time.Now,
	}, nil
}

type transactionTimeoutJob struct {
	logg       *logger.Logger
	db         txRunner
	reader     overdueReader
	txns       transactionLifecycle
	disputes   paymentEscalator
	outbox     outboxEmitter
	outboxRepo outboxExistenceChecker
	batchSize  int
	now        func() time.Time
}

func (j *transactionTimeoutJob) Name() string { return "transaction-timeout" }

func (j *transactionTimeoutJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.cancelOverdue(ctx, enums.TransactionStatusPendingSellerResponse, transactions.SellerResponseWindow, "seller response window elapsed"); err != nil {
		errs = append(errs, err)
	}
	if err := j.cancelOverdue(ctx, enums.TransactionStatusAcceptedPendingDelivery, transactions.DeliveryWindow, "delivery window elapsed"); err != nil {
		errs = append(errs, err)
	}
	if err := j.escalateOverduePayments(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.closeUnrated(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.nudgeApproachingDeadlines(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *transactionTimeoutJob) cancelOverdue(ctx context.Context, status enums.TransactionStatus, window time.Duration, reason string) error {
	cutoff := j.now().UTC().Add(-window)
	rows, err := j.reader.FindOverdue(ctx, status, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query overdue %s transactions: %w", status, err)
	}
	count := 0
	for _, txn := range rows {
		if err := j.txns.TimeoutCancel(ctx, txn.ID, reason); err != nil {
			return fmt.Errorf("timeout cancel %s: %w", txn.ID, err)
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"status": status.String(), "count": count})
	j.logg.Info(logCtx, "transaction timeout sweep complete")
	return nil
}

func (j *transactionTimeoutJob) escalateOverduePayments(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-transactions.PaymentReviewWindow)
	rows, err := j.reader.FindOverdue(ctx, enums.TransactionStatusPaymentConfirmed, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query overdue payment reviews: %w", err)
	}
	count := 0
	for _, txn := range rows {
		if txn.Disputed {
			continue
		}
		if err := j.disputes.EscalateOverduePayment(ctx, txn.ID); err != nil {
			return fmt.Errorf("escalate %s: %w", txn.ID, err)
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "payment escalation sweep complete")
	return nil
}

func (j *transactionTimeoutJob) closeUnrated(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-transactions.RatingWindow)
	rows, err := j.reader.FindOverdue(ctx, enums.TransactionStatusCompletedPendingRating, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query expired rating windows: %w", err)
	}
	count := 0
	for _, txn := range rows {
		if err := j.txns.AutoCompleteUnrated(ctx, txn.ID); err != nil {
			return fmt.Errorf("auto-complete %s: %w", txn.ID, err)
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "rating window sweep complete")
	return nil
}

func (j *transactionTimeoutJob) nudgeApproachingDeadlines(ctx context.Context) error {
	now := j.now().UTC()
	count := 0
	for _, status := range []enums.TransactionStatus{
		enums.TransactionStatusPendingSellerResponse,
		enums.TransactionStatusAcceptedPendingDelivery,
		enums.TransactionStatusPaymentConfirmed,
		enums.TransactionStatusCompletedPendingRating,
	} {
		cutoff, ok := transactions.NudgeCutoff(status, now)
		if !ok {
			continue
		}
		rows, err := j.reader.FindOverdue(ctx, status, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("query %s transactions for nudge: %w", status, err)
		}
		for _, txn := range rows {
			if !transactions.RequiresUrgentAttention(&txn, now) {
				continue
			}
			sent, err := j.emitDeadlineNudge(ctx, txn, now)
			if err != nil {
				return err
			}
			if sent {
				count++
			}
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "deadline nudge loop complete")
	return nil
}

func (j *transactionTimeoutJob) emitDeadlineNudge(ctx context.Context, txn models.Transaction, now time.Time) (bool, error) {
	exists, err := j.outboxRepo.Exists(ctx, enums.EventTransactionDeadlineNudge, enums.AggregateTransaction, txn.ID)
	if err != nil {
		return false, fmt.Errorf("check deadline nudge existence: %w", err)
	}
	if exists {
		return false, nil
	}
	deadline, ok := transactions.Deadline(&txn)
	if !ok {
		return false, nil
	}
	remaining, _ := transactions.TimeRemaining(&txn, now)
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionDeadlineNudge,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			OccurredAt:    now,
			Data: DeadlineNudgeEvent{
				TransactionID:    txn.ID,
				BuyerID:          txn.BuyerID,
				SellerID:         txn.SellerID,
				Status:           txn.Status,
				Deadline:         deadline,
				RemainingSeconds: int64(remaining / time.Second),
			},
		})
	})
	if err != nil {
		return false, fmt.Errorf("emit deadline nudge: %w", err)
	}
	return true, nil
}

// DeadlineNudgeEvent warns a party that their response window is
// nearly over.
type DeadlineNudgeEvent struct {
	TransactionID    uuid.UUID               `json:"transactionId"`
	BuyerID          uuid.UUID               `json:"buyerId"`
	SellerID         uuid.UUID               `json:"sellerId"`
	Status           enums.TransactionStatus `json:"status"`
	Deadline         time.Time               `json:"deadline"`
	RemainingSeconds int64                   `json:"remainingSeconds"`
}

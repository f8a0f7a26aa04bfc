package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox"
)

func TestTransactionTimeoutJob_cancelsOverdueStatuses(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	pending := sweepTxn(enums.TransactionStatusPendingSellerResponse, now.Add(-25*time.Hour))
	stalled := sweepTxn(enums.TransactionStatusAcceptedPendingDelivery, now.Add(-150*time.Hour))

	reader := &fakeOverdueReader{rows: map[enums.TransactionStatus][]models.Transaction{
		enums.TransactionStatusPendingSellerResponse:   {pending},
		enums.TransactionStatusAcceptedPendingDelivery: {stalled},
	}}
	helper := newTimeoutJobTest(t, reader)
	helper.job.now = func() time.Time { return now }

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.lifecycle.cancelled) != 2 {
		t.Fatalf("expected 2 cancellations, got %d", len(helper.lifecycle.cancelled))
	}
	if helper.lifecycle.cancelled[pending.ID] != "seller response window elapsed" {
		t.Fatalf("unexpected reason: %q", helper.lifecycle.cancelled[pending.ID])
	}
	if helper.lifecycle.cancelled[stalled.ID] != "delivery window elapsed" {
		t.Fatalf("unexpected reason: %q", helper.lifecycle.cancelled[stalled.ID])
	}
}

func TestTransactionTimeoutJob_escalatesAndCloses(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	unpaid := sweepTxn(enums.TransactionStatusPaymentConfirmed, now.Add(-11*24*time.Hour))
	alreadyDisputed := sweepTxn(enums.TransactionStatusPaymentConfirmed, now.Add(-11*24*time.Hour))
	alreadyDisputed.Disputed = true
	unrated := sweepTxn(enums.TransactionStatusCompletedPendingRating, now.Add(-8*24*time.Hour))

	reader := &fakeOverdueReader{rows: map[enums.TransactionStatus][]models.Transaction{
		enums.TransactionStatusPaymentConfirmed:       {unpaid, alreadyDisputed},
		enums.TransactionStatusCompletedPendingRating: {unrated},
	}}
	helper := newTimeoutJobTest(t, reader)
	helper.job.now = func() time.Time { return now }

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.escalator.escalated) != 1 || helper.escalator.escalated[0] != unpaid.ID {
		t.Fatalf("expected one escalation for the undisputed row, got %v", helper.escalator.escalated)
	}
	if len(helper.lifecycle.completed) != 1 || helper.lifecycle.completed[0] != unrated.ID {
		t.Fatalf("expected one auto-complete, got %v", helper.lifecycle.completed)
	}
}

func TestTransactionTimeoutJob_nudgesApproachingDeadlines(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	// 23h into the 24h seller window: inside the 2h urgency threshold.
	urgent := sweepTxn(enums.TransactionStatusPendingSellerResponse, now.Add(-23*time.Hour))

	reader := &fakeOverdueReader{rows: map[enums.TransactionStatus][]models.Transaction{
		enums.TransactionStatusPendingSellerResponse: {urgent},
	}}
	helper := newTimeoutJobTest(t, reader)
	helper.job.now = func() time.Time { return now }

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The row is urgent but not yet overdue, so it is nudged, not cancelled.
	if len(helper.lifecycle.cancelled) != 0 {
		t.Fatalf("urgent row should not be cancelled yet")
	}
	if len(helper.outboxSvc.events) != 1 {
		t.Fatalf("expected 1 nudge event, got %d", len(helper.outboxSvc.events))
	}
	event := helper.outboxSvc.events[0]
	if event.EventType != enums.EventTransactionDeadlineNudge {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	payload, ok := event.Data.(DeadlineNudgeEvent)
	if !ok {
		t.Fatal("expected deadline nudge payload")
	}
	if payload.TransactionID != urgent.ID {
		t.Fatalf("unexpected transaction id: %s", payload.TransactionID)
	}
	if payload.RemainingSeconds != int64(time.Hour/time.Second) {
		t.Fatalf("unexpected remaining seconds: %d", payload.RemainingSeconds)
	}

	// A second run finds the nudge already emitted and stays quiet.
	helper.outboxRepo.exists = true
	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(helper.outboxSvc.events) != 1 {
		t.Fatalf("nudge should be emitted once, got %d events", len(helper.outboxSvc.events))
	}
}

type timeoutJobTestHelper struct {
	job        *transactionTimeoutJob
	lifecycle  *fakeLifecycle
	escalator  *fakeEscalator
	outboxSvc  *fakeOutboxService
	outboxRepo *fakeOutboxRepo
}

func newTimeoutJobTest(t *testing.T, reader overdueReader) *timeoutJobTestHelper {
	t.Helper()
	lifecycle := &fakeLifecycle{cancelled: map[uuid.UUID]string{}}
	escalator := &fakeEscalator{}
	outboxSvc := &fakeOutboxService{}
	outboxRepo := &fakeOutboxRepo{}
	jobIface, err := NewTransactionTimeoutJob(TransactionTimeoutJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		DB:           fakeTxRunner{},
		Reader:       reader,
		Transactions: lifecycle,
		Disputes:     escalator,
		Outbox:       outboxSvc,
		OutboxRepo:   outboxRepo,
	})
	if err != nil {
		t.Fatalf("NewTransactionTimeoutJob: %v", err)
	}
	job, ok := jobIface.(*transactionTimeoutJob)
	if !ok {
		t.Fatalf("expected transactionTimeoutJob, got %T", jobIface)
	}
	return &timeoutJobTestHelper{
		job:        job,
		lifecycle:  lifecycle,
		escalator:  escalator,
		outboxSvc:  outboxSvc,
		outboxRepo: outboxRepo,
	}
}

func sweepTxn(status enums.TransactionStatus, changedAt time.Time) models.Transaction {
	return models.Transaction{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		SellerID:        uuid.New(),
		Status:          status,
		StatusChangedAt: changedAt,
	}
}

type fakeOverdueReader struct {
	rows map[enums.TransactionStatus][]models.Transaction
}

func (f *fakeOverdueReader) FindOverdue(ctx context.Context, status enums.TransactionStatus, cutoff time.Time, limit int) ([]models.Transaction, error) {
	var matched []models.Transaction
	for _, txn := range f.rows[status] {
		if txn.StatusChangedAt.Before(cutoff) {
			matched = append(matched, txn)
		}
	}
	return matched, nil
}

type fakeLifecycle struct {
	cancelled map[uuid.UUID]string
	completed []uuid.UUID
}

func (f *fakeLifecycle) TimeoutCancel(ctx context.Context, transactionID uuid.UUID, reason string) error {
	f.cancelled[transactionID] = reason
	return nil
}

func (f *fakeLifecycle) AutoCompleteUnrated(ctx context.Context, transactionID uuid.UUID) error {
	f.completed = append(f.completed, transactionID)
	return nil
}

type fakeEscalator struct {
	escalated []uuid.UUID
}

func (f *fakeEscalator) EscalateOverduePayment(ctx context.Context, transactionID uuid.UUID) error {
	f.escalated = append(f.escalated, transactionID)
	return nil
}

type fakeOutboxRepo struct {
	exists bool
}

func (f *fakeOutboxRepo) Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	return f.exists, nil
}

type fakeOutboxService struct {
	events []outbox.DomainEvent
}

func (f *fakeOutboxService) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateTransaction  OutboxAggregateType = "transaction"
	AggregateListing      OutboxAggregateType = "listing"
	AggregateRating       OutboxAggregateType = "rating"
	AggregateDispute      OutboxAggregateType = "dispute"
	AggregateUser         OutboxAggregateType = "user"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateListing,
	AggregateRating,
	AggregateDispute,
	AggregateUser,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventTransactionCreated          OutboxEventType = "transaction_created"
	EventTransactionAccepted         OutboxEventType = "transaction_accepted"
	EventTransactionRejected         OutboxEventType = "transaction_rejected"
	EventTransactionDelivered        OutboxEventType = "transaction_delivered"
	EventTransactionPaymentConfirmed OutboxEventType = "transaction_payment_confirmed"
	EventTransactionReceiptConfirmed OutboxEventType = "transaction_receipt_confirmed"
	EventTransactionCompleted        OutboxEventType = "transaction_completed"
	EventTransactionTimeoutCancelled OutboxEventType = "transaction_timeout_cancelled"
	EventTransactionDisputed         OutboxEventType = "transaction_disputed"
	EventTransactionDisputeResolved  OutboxEventType = "transaction_dispute_resolved"
	EventTransactionDeadlineNudge    OutboxEventType = "transaction_deadline_nudge"
	EventRatingSubmitted             OutboxEventType = "rating_submitted"
	EventListingSoldOut              OutboxEventType = "listing_sold_out"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionCreated,
	EventTransactionAccepted,
	EventTransactionRejected,
	EventTransactionDelivered,
	EventTransactionPaymentConfirmed,
	EventTransactionReceiptConfirmed,
	EventTransactionCompleted,
	EventTransactionTimeoutCancelled,
	EventTransactionDisputed,
	EventTransactionDisputeResolved,
	EventTransactionDeadlineNudge,
	EventRatingSubmitted,
	EventListingSoldOut,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

package enums

import "fmt"

// TransactionStatus tracks the lifecycle of a marketplace transaction.
type TransactionStatus string

const (
	TransactionStatusPendingSellerResponse   TransactionStatus = "pending_seller_response"
	TransactionStatusAcceptedPendingDelivery TransactionStatus = "accepted_pending_delivery"
	TransactionStatusDeliveredPendingPayment TransactionStatus = "delivered_pending_payment"
	TransactionStatusPaymentConfirmed        TransactionStatus = "payment_confirmed"
	TransactionStatusCompletedPendingRating  TransactionStatus = "completed_pending_rating"
	TransactionStatusCompleted               TransactionStatus = "completed"
	TransactionStatusCancelledBySeller       TransactionStatus = "cancelled_by_seller"
	TransactionStatusTimeoutCancelled        TransactionStatus = "timeout_cancelled"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPendingSellerResponse,
	TransactionStatusAcceptedPendingDelivery,
	TransactionStatusDeliveredPendingPayment,
	TransactionStatusPaymentConfirmed,
	TransactionStatusCompletedPendingRating,
	TransactionStatusCompleted,
	TransactionStatusCancelledBySeller,
	TransactionStatusTimeoutCancelled,
}

// String implements fmt.Stringer.
func (t TransactionStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionStatus.
func (t TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (t TransactionStatus) IsTerminal() bool {
	switch t {
	case TransactionStatusCompleted, TransactionStatusCancelledBySeller, TransactionStatusTimeoutCancelled:
		return true
	}
	return false
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}

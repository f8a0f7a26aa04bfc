package transactions

import (
	"time"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/types"
)

// Response windows per status. Overrunning the first two cancels the
// transaction; an overdue payment window escalates to a dispute and an
// overdue rating window closes the transaction unrated.
const (
	SellerResponseWindow = 24 * time.Hour
	DeliveryWindow       = 144 * time.Hour
	PaymentReviewWindow  = 10 * 24 * time.Hour
	RatingWindow         = 7 * 24 * time.Hour

	urgentShortThreshold = 2 * time.Hour
	urgentLongThreshold  = 24 * time.Hour
)

func windowFor(status enums.TransactionStatus) (time.Duration, string, bool) {
	switch status {
	case enums.TransactionStatusPendingSellerResponse:
		return SellerResponseWindow, types.TimelineCreated, true
	case enums.TransactionStatusAcceptedPendingDelivery:
		return DeliveryWindow, types.TimelineAccepted, true
	case enums.TransactionStatusPaymentConfirmed:
		return PaymentReviewWindow, types.TimelinePaymentConfirmed, true
	case enums.TransactionStatusCompletedPendingRating:
		return RatingWindow, types.TimelineReceiptConfirmed, true
	default:
		return 0, "", false
	}
}

// Deadline returns when the current status times out, if it can.
func Deadline(txn *models.Transaction) (time.Time, bool) {
	window, milestone, ok := windowFor(txn.Status)
	if !ok {
		return time.Time{}, false
	}
	anchor := txn.StatusChangedAt
	if at, stamped := txn.Timeline.At(milestone); stamped {
		anchor = at
	}
	if anchor.IsZero() {
		anchor = txn.CreatedAt
	}
	return anchor.Add(window), true
}

// TimeRemaining reports the time left before the active deadline,
// floored at zero. The second return is false for statuses with no
// deadline (delivered_pending_payment waits on the seller's counterparty,
// terminals wait on nothing).
func TimeRemaining(txn *models.Transaction, now time.Time) (time.Duration, bool) {
	deadline, ok := Deadline(txn)
	if !ok {
		return 0, false
	}
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// RequiresUrgentAttention reports whether the remaining window has
// shrunk under the urgency threshold: two hours for the short 24h
// seller-response window, one day for the longer windows.
func RequiresUrgentAttention(txn *models.Transaction, now time.Time) bool {
	window, _, ok := windowFor(txn.Status)
	if !ok {
		return false
	}
	remaining, ok := TimeRemaining(txn, now)
	if !ok {
		return false
	}
	return remaining <= urgencyThreshold(window)
}

// NudgeCutoff returns the status-change cutoff after which a
// transaction in the given status has entered its urgency threshold.
func NudgeCutoff(status enums.TransactionStatus, now time.Time) (time.Time, bool) {
	window, _, ok := windowFor(status)
	if !ok {
		return time.Time{}, false
	}
	return now.Add(urgencyThreshold(window) - window), true
}

func urgencyThreshold(window time.Duration) time.Duration {
	if window <= 24*time.Hour {
		return urgentShortThreshold
	}
	return urgentLongThreshold
}

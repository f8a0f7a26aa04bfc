package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox/idempotency"
)

const transactionNotificationConsumer = "transaction-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Consumer watches domain events and fans lifecycle changes out as
// in-app notifications for the affected parties.
type Consumer struct {
	repo         repository
	users        userReader
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a transaction notification consumer.
func NewConsumer(repo repository, users userReader, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users reader required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		users:        users,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	handler, handled := c.handlerFor(eventType)
	if !handled {
		c.logg.Info(logCtx, "event type not handled, skipping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, transactionNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := handler(ctx, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, transactionNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

type eventHandler func(ctx context.Context, data json.RawMessage, logCtx context.Context) error

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) (eventHandler, bool) {
	switch eventType {
	case enums.EventTransactionCreated,
		enums.EventTransactionAccepted,
		enums.EventTransactionRejected,
		enums.EventTransactionDelivered,
		enums.EventTransactionPaymentConfirmed,
		enums.EventTransactionReceiptConfirmed,
		enums.EventTransactionCompleted,
		enums.EventTransactionTimeoutCancelled:
		return func(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
			return c.handleLifecycle(ctx, eventType, data, logCtx)
		}, true
	case enums.EventTransactionDeadlineNudge:
		return c.handleDeadlineNudge, true
	case enums.EventTransactionDisputed, enums.EventTransactionDisputeResolved:
		return func(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
			return c.handleDispute(ctx, eventType, data, logCtx)
		}, true
	case enums.EventRatingSubmitted:
		return c.handleRating, true
	default:
		return nil, false
	}
}

type transactionEventPayload struct {
	TransactionID uuid.UUID               `json:"transactionId"`
	BuyerID       uuid.UUID               `json:"buyerId"`
	SellerID      uuid.UUID               `json:"sellerId"`
	Status        enums.TransactionStatus `json:"status"`
	ContactMethod enums.ContactMethod     `json:"contactMethod"`
	Reason        *string                 `json:"reason,omitempty"`
}

func (c *Consumer) handleLifecycle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	var payload transactionEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse lifecycle payload: %w", err)
	}
	link := transactionLink(payload.TransactionID)

	switch eventType {
	case enums.EventTransactionCreated:
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeTransactionUpdate,
			"New purchase request",
			"A buyer wants your cards. Respond within 24 hours or the request expires.",
			link)
	case enums.EventTransactionAccepted:
		message := "The seller accepted your purchase and is preparing delivery."
		if contact := c.contactLink(ctx, payload.SellerID, payload.ContactMethod, "Hi! About my card purchase on Cartaviva..."); contact != "" {
			message += " Coordinate here: " + contact
		}
		return c.notify(ctx, payload.BuyerID, enums.NotificationTypeTransactionUpdate,
			"Purchase accepted", message, link)
	case enums.EventTransactionRejected:
		message := "The seller declined your purchase. Your cart items were released."
		if payload.Reason != nil && *payload.Reason != "" {
			message = fmt.Sprintf("The seller declined your purchase: %s", *payload.Reason)
		}
		return c.notify(ctx, payload.BuyerID, enums.NotificationTypeTransactionUpdate,
			"Purchase declined", message, link)
	case enums.EventTransactionDelivered:
		return c.notify(ctx, payload.BuyerID, enums.NotificationTypeTransactionUpdate,
			"Cards delivered",
			"The seller marked your cards as delivered to the pickup store.",
			link)
	case enums.EventTransactionPaymentConfirmed:
		return c.notify(ctx, payload.BuyerID, enums.NotificationTypeTransactionUpdate,
			"Payment confirmed",
			"The seller confirmed your payment. Confirm receipt once you pick up the cards.",
			link)
	case enums.EventTransactionReceiptConfirmed:
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeTransactionUpdate,
			"Receipt confirmed",
			"The buyer picked up the cards. You can now rate each other.",
			link)
	case enums.EventTransactionCompleted:
		if err := c.notify(ctx, payload.BuyerID, enums.NotificationTypeTransactionUpdate,
			"Transaction complete", "This transaction is closed. Thanks for trading on Cartaviva.", link); err != nil {
			return err
		}
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeTransactionUpdate,
			"Transaction complete", "This transaction is closed. Thanks for trading on Cartaviva.", link)
	case enums.EventTransactionTimeoutCancelled:
		message := "The transaction was cancelled after a response window expired."
		if payload.Reason != nil && *payload.Reason != "" {
			message = fmt.Sprintf("The transaction was cancelled: %s", *payload.Reason)
		}
		if err := c.notify(ctx, payload.BuyerID, enums.NotificationTypeTransactionUpdate,
			"Transaction cancelled", message, link); err != nil {
			return err
		}
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeTransactionUpdate,
			"Transaction cancelled", message, link)
	default:
		return nil
	}
}

type deadlineNudgePayload struct {
	TransactionID    uuid.UUID               `json:"transactionId"`
	BuyerID          uuid.UUID               `json:"buyerId"`
	SellerID         uuid.UUID               `json:"sellerId"`
	Status           enums.TransactionStatus `json:"status"`
	RemainingSeconds int64                   `json:"remainingSeconds"`
}

func (c *Consumer) handleDeadlineNudge(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload deadlineNudgePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse nudge payload: %w", err)
	}
	link := transactionLink(payload.TransactionID)
	hours := payload.RemainingSeconds / 3600

	switch payload.Status {
	case enums.TransactionStatusPendingSellerResponse:
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeDeadlineWarning,
			"Purchase request expiring",
			fmt.Sprintf("A purchase request expires in about %d hour(s). Accept or decline now.", hours),
			link)
	case enums.TransactionStatusAcceptedPendingDelivery:
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeDeadlineWarning,
			"Delivery window closing",
			fmt.Sprintf("Mark the cards as delivered within %d hour(s) or the transaction is cancelled.", hours),
			link)
	case enums.TransactionStatusPaymentConfirmed:
		return c.notify(ctx, payload.BuyerID, enums.NotificationTypeDeadlineWarning,
			"Confirm your pickup",
			fmt.Sprintf("Confirm receipt within %d hour(s) or the transaction is flagged for review.", hours),
			link)
	case enums.TransactionStatusCompletedPendingRating:
		if err := c.notify(ctx, payload.BuyerID, enums.NotificationTypeDeadlineWarning,
			"Rating window closing",
			fmt.Sprintf("Rate your counterparty within %d hour(s) before the transaction closes.", hours),
			link); err != nil {
			return err
		}
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeDeadlineWarning,
			"Rating window closing",
			fmt.Sprintf("Rate your counterparty within %d hour(s) before the transaction closes.", hours),
			link)
	default:
		c.logg.Info(logCtx, "nudge status not handled")
		return nil
	}
}

type disputeEventPayload struct {
	DisputeID     uuid.UUID             `json:"disputeId"`
	TransactionID uuid.UUID             `json:"transactionId"`
	OpenerID      uuid.UUID             `json:"openerId"`
	BuyerID       uuid.UUID             `json:"buyerId"`
	SellerID      uuid.UUID             `json:"sellerId"`
	Type          enums.DisputeType     `json:"type"`
	Severity      enums.DisputeSeverity `json:"severity"`
	Resolution    *string               `json:"resolution,omitempty"`
}

func (c *Consumer) handleDispute(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	var payload disputeEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse dispute payload: %w", err)
	}
	link := transactionLink(payload.TransactionID)

	if eventType == enums.EventTransactionDisputeResolved {
		message := "The dispute on your transaction was resolved."
		if payload.Resolution != nil && *payload.Resolution != "" {
			message = fmt.Sprintf("Dispute resolved: %s", *payload.Resolution)
		}
		if err := c.notify(ctx, payload.BuyerID, enums.NotificationTypeDisputeAlert,
			"Dispute resolved", message, link); err != nil {
			return err
		}
		return c.notify(ctx, payload.SellerID, enums.NotificationTypeDisputeAlert,
			"Dispute resolved", message, link)
	}

	counterparty := payload.SellerID
	if payload.OpenerID == payload.SellerID {
		counterparty = payload.BuyerID
	}
	return c.notify(ctx, counterparty, enums.NotificationTypeDisputeAlert,
		"Dispute opened",
		fmt.Sprintf("Your counterparty opened a %s dispute on this transaction.", payload.Type),
		link)
}

type ratingEventPayload struct {
	RatingID      uuid.UUID `json:"ratingId"`
	TransactionID uuid.UUID `json:"transactionId"`
	RaterID       uuid.UUID `json:"raterId"`
	RateeID       uuid.UUID `json:"rateeId"`
	Stars         int       `json:"stars"`
}

func (c *Consumer) handleRating(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload ratingEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse rating payload: %w", err)
	}
	return c.notify(ctx, payload.RateeID, enums.NotificationTypeRatingReceived,
		"New rating received",
		fmt.Sprintf("You received a %d-star rating on a recent transaction.", payload.Stars),
		transactionLink(payload.TransactionID))
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message, link string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("notification recipient missing")
	}
	return c.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Link:    stringPtr(link),
	})
}

// contactLink builds the hand-off link for the channel the buyer chose
// at checkout. Best effort: a missing user, phone or email just drops
// the link.
func (c *Consumer) contactLink(ctx context.Context, userID uuid.UUID, method enums.ContactMethod, text string) string {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return ""
	}
	if method == enums.ContactMethodEmail {
		return MailtoLink(user.Email, "Cartaviva purchase", text)
	}
	if user.Phone == nil {
		return ""
	}
	return WhatsAppLink(*user.Phone, text)
}

func transactionLink(id uuid.UUID) string {
	return fmt.Sprintf("/transactions/%s", id)
}

func stringPtr(value string) *string {
	return &value
}

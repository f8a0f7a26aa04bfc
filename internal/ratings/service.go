package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/internal/transactions"
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

// Service handles post-transaction reviews. A rating insert, the
// ratee's aggregate recompute and the lifecycle flag all commit in one
// database transaction.
type Service struct {
	repo    *Repository
	txns    *transactions.Service
	txnRepo *transactions.Repository
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
}

func NewService(repo *Repository, txns *transactions.Service, txnRepo *transactions.Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if txns == nil {
		return nil, fmt.Errorf("transactions service required")
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
		txns:    txns,
		txnRepo: txnRepo,
		tx:      tx,
		outbox:  publisher,
		logg:    logg,
	}, nil
}

// SubmitInput is a party's review of their counterparty.
type SubmitInput struct {
	RaterID       uuid.UUID
	TransactionID uuid.UUID
	Stars         int
	Comment       *string
	Categories    map[string]int
}

// RatingSubmittedEvent is the outbox payload for a new review.
type RatingSubmittedEvent struct {
	RatingID      uuid.UUID             `json:"ratingId"`
	TransactionID uuid.UUID             `json:"transactionId"`
	RaterID       uuid.UUID             `json:"raterId"`
	RateeID       uuid.UUID             `json:"rateeId"`
	Direction     enums.RatingDirection `json:"direction"`
	Stars         int                   `json:"stars"`
}

// Submit records a review once the transaction has reached the rating
// stage. The rater must be a party, may only rate once, and the ratee's
// aggregate is recomputed before commit.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Rating, error) {
	if input.Stars < 1 || input.Stars > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 1 and 5")
	}
	for category, score := range input.Categories {
		if score < 1 || score > 5 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category scores must be between 1 and 5").
				WithDetails(map[string]any{"category": category})
		}
	}

	var created *models.Rating
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn, err := s.txnRepo.WithTx(tx).FindByID(ctx, input.TransactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
		}

		direction, rateeID, err := partyDirection(txn, input.RaterID)
		if err != nil {
			return err
		}
		if err := checkEligibility(txn, direction); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		if existing, err := repo.FindByTransactionAndRater(ctx, txn.ID, input.RaterID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check existing rating")
		} else if existing != nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyDone, "transaction already rated")
		}

		rating := &models.Rating{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			RaterID:       input.RaterID,
			RateeID:       rateeID,
			Direction:     direction,
			Stars:         input.Stars,
			Comment:       input.Comment,
			Categories:    types.Ratings(input.Categories),
		}
		if err := repo.Insert(ctx, rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert rating")
		}
		if err := repo.RecomputeAggregates(ctx, rateeID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "recompute rating aggregates")
		}
		if err := s.txns.MarkRated(ctx, tx, txn.ID, direction); err != nil {
			return err
		}

		created = rating
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRatingSubmitted,
			AggregateType: enums.AggregateRating,
			AggregateID:   rating.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.RaterID},
			Data: RatingSubmittedEvent{
				RatingID:      rating.ID,
				TransactionID: txn.ID,
				RaterID:       input.RaterID,
				RateeID:       rateeID,
				Direction:     direction,
				Stars:         input.Stars,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rating_id":      created.ID.String(),
		"transaction_id": input.TransactionID.String(),
		"stars":          input.Stars,
	}), "rating submitted")
	return created, nil
}

// ListForUser pages the reviews a user has received.
func (s *Service) ListForUser(ctx context.Context, rateeID uuid.UUID, params pagination.Params) (*ListResult, error) {
	result, err := s.repo.ListForUser(ctx, rateeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list ratings")
	}
	return result, nil
}

func partyDirection(txn *models.Transaction, raterID uuid.UUID) (enums.RatingDirection, uuid.UUID, error) {
	switch raterID {
	case txn.BuyerID:
		return enums.RatingDirectionBuyerOnSeller, txn.SellerID, nil
	case txn.SellerID:
		return enums.RatingDirectionSellerOnBuyer, txn.BuyerID, nil
	default:
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "only transaction parties can rate")
	}
}

func checkEligibility(txn *models.Transaction, direction enums.RatingDirection) error {
	switch txn.Status {
	case enums.TransactionStatusCompletedPendingRating, enums.TransactionStatusCompleted:
	default:
		return pkgerrors.New(pkgerrors.CodeNotEligible, "transaction is not ready for rating").
			WithDetails(map[string]any{"status": txn.Status})
	}
	alreadyFlagged := (direction == enums.RatingDirectionBuyerOnSeller && txn.BuyerRated) ||
		(direction == enums.RatingDirectionSellerOnBuyer && txn.SellerRated)
	if alreadyFlagged {
		return pkgerrors.New(pkgerrors.CodeAlreadyDone, "transaction already rated")
	}
	return nil
}

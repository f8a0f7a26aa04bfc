package ratings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Insert(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

// FindByTransactionAndRater reports whether the rater already reviewed
// this transaction.
func (r *Repository) FindByTransactionAndRater(ctx context.Context, transactionID, raterID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND rater_id = ?", transactionID, raterID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// RecomputeAggregates rewrites the ratee's denormalized rating average
// and review count from the ratings table, inside the caller's
// transaction so the aggregate can never drift from the rows.
func (r *Repository) RecomputeAggregates(ctx context.Context, rateeID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET rating = COALESCE((SELECT AVG(stars) FROM ratings WHERE ratee_id = ?), 0),
		    reviews = (SELECT COUNT(*) FROM ratings WHERE ratee_id = ?)
		WHERE id = ?`,
		rateeID, rateeID, rateeID,
	).Error
}

type ListResult struct {
	Ratings    []models.Rating
	NextCursor string
}

// ListForUser pages the reviews received by a user, newest first.
func (r *Repository) ListForUser(ctx context.Context, rateeID uuid.UUID, params pagination.Params) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("ratee_id = ?", rateeID).
		Order("created_at DESC, id DESC").
		Limit(limitWithBuffer)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Rating
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	var nextCursor string
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &ListResult{Ratings: rows, NextCursor: nextCursor}, nil
}

package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

// Repository persists transactions and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Insert writes the transaction row and its line items.
func (r *Repository) Insert(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindByID loads a transaction with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&txn, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// TransitionStatus applies a guarded status move. The WHERE clause pins
// the expected current status so concurrent writers cannot clobber each
// other; zero rows affected means the row moved underneath the caller.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetDisputed flips the parallel disputed flag, guarded on its current
// value so a second open or resolve reports cleanly.
func (r *Repository) SetDisputed(ctx context.Context, id uuid.UUID, disputed bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND disputed = ?", id, !disputed).
		Update("disputed", disputed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateFields writes arbitrary columns without a status guard.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// ListFilter narrows party-scoped transaction lists.
type ListFilter struct {
	Status   *enums.TransactionStatus
	Disputed *bool
}

// ListResult is one page of transactions.
type ListResult struct {
	Transactions []models.Transaction
	NextCursor   string
}

// ListForBuyer pages the buyer's transactions, newest first.
func (r *Repository) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filter ListFilter) (*ListResult, error) {
	return r.list(ctx, "buyer_id = ?", buyerID, params, filter)
}

// ListForSeller pages the seller's transactions, newest first.
func (r *Repository) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filter ListFilter) (*ListResult, error) {
	return r.list(ctx, "seller_id = ?", sellerID, params, filter)
}

func (r *Repository) list(ctx context.Context, partyClause string, partyID uuid.UUID, params pagination.Params, filter ListFilter) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Preload("Items").
		Where(partyClause, partyID)
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.Disputed != nil {
		qb = qb.Where("disputed = ?", *filter.Disputed)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Transaction
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &ListResult{Transactions: rows, NextCursor: nextCursor}, nil
}

// FindOverdue returns transactions sitting in the given status since
// before the cutoff. The sweep re-checks each row under its own
// transaction, so this read needs no lock.
func (r *Repository) FindOverdue(ctx context.Context, status enums.TransactionStatus, cutoff time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND status_changed_at < ?", status, cutoff).
		Order("status_changed_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

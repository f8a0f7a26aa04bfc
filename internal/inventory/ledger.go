package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
)

// ReservationRequest asks for qty units of one listing.
type ReservationRequest struct {
	ListingID uuid.UUID
	Qty       int
}

// Availability is the advisory read returned to cart flows. It can be
// stale by the time a reserve runs; only the guarded UPDATE is binding.
type Availability struct {
	ListingID    uuid.UUID
	AvailableQty int
	Status       enums.ListingStatus
}

// Reserve moves stock from available to reserved for every request, or
// fails the whole batch. Callers run it inside a transaction so any
// error rolls back the rows already updated. Each row is claimed with a
// single guarded UPDATE; zero rows affected means the listing is gone
// or short, and the re-read decides which.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodePersistence, "transaction required for reservation")
	}
	for _, req := range requests {
		if req.ListingID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
		}
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE listings
			SET available_qty = available_qty - ?,
				reserved_qty = reserved_qty + ?,
				status = CASE WHEN available_qty - ? = 0 THEN 'sold_out' ELSE status END,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status <> 'archived' AND available_qty >= ?
		`, req.Qty, req.Qty, req.Qty, req.ListingID, req.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "reserve listing")
		}
		if res.RowsAffected > 0 {
			continue
		}

		var listing models.Listing
		err := tx.WithContext(ctx).Select("id", "available_qty", "status").First(&listing, "id = ?", req.ListingID).Error
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found").
				WithDetails(map[string]any{"listing_id": req.ListingID})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload listing")
		}
		if listing.Status == enums.ListingStatusArchived {
			return pkgerrors.New(pkgerrors.CodeNotFound, "listing no longer available").
				WithDetails(map[string]any{"listing_id": req.ListingID})
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
			WithDetails(map[string]any{
				"listing_id": req.ListingID,
				"requested":  req.Qty,
				"available":  listing.AvailableQty,
			})
	}
	return nil
}

// Release returns reserved stock to availability, reviving a sold-out
// listing. Used by rejection, cancellation and timeout sweeps.
func Release(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodePersistence, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE listings
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			status = CASE WHEN status = 'sold_out' THEN 'active' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty >= ?
	`, qty, qty, listingID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeAlreadyDone, "no matching reservation to release").
			WithDetails(map[string]any{
				"listing_id": listingID,
				"qty":        qty,
			})
	}
	return nil
}

// Commit burns a reservation once the buyer confirms receipt. Stock is
// gone for good: reserved drops without touching available.
func Commit(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodePersistence, "transaction required for inventory commit")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE listings
		SET reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty >= ?
	`, qty, listingID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "commit inventory")
	}
	return nil
}

// CheckAvailability reads the current counters without locking anything.
func CheckAvailability(ctx context.Context, db *gorm.DB, listingID uuid.UUID) (Availability, error) {
	if db == nil {
		return Availability{}, pkgerrors.New(pkgerrors.CodePersistence, "database required")
	}
	var listing models.Listing
	err := db.WithContext(ctx).Select("id", "available_qty", "status").First(&listing, "id = ?", listingID).Error
	if err == gorm.ErrRecordNotFound {
		return Availability{}, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load listing")
	}
	return Availability{
		ListingID:    listing.ID,
		AvailableQty: listing.AvailableQty,
		Status:       listing.Status,
	}, nil
}

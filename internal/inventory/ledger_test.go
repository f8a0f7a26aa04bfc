package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
)

func TestReserveAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listingA := seedListing(t, db, 5)
	listingB := seedListing(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{
			{ListingID: listingA, Qty: 3},
			{ListingID: listingB, Qty: 2},
		})
	})
	if err == nil {
		t.Fatal("expected short batch to fail")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["available"] != 1 {
		t.Fatalf("details should carry the actual quantity, got %v", typed.Details())
	}

	// First line must have been rolled back with the transaction.
	a := loadListing(t, db, listingA)
	if a.AvailableQty != 5 || a.ReservedQty != 0 {
		t.Fatalf("reservation leaked through rollback: %+v", a)
	}
}

func TestReserveDecrementsAndFlipsSoldOut(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listingA := seedListing(t, db, 5)
	listingB := seedListing(t, db, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{
			{ListingID: listingA, Qty: 3},
			{ListingID: listingB, Qty: 2},
		})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	a := loadListing(t, db, listingA)
	if a.AvailableQty != 2 || a.ReservedQty != 3 || a.Status != enums.ListingStatusActive {
		t.Fatalf("unexpected listing a state: %+v", a)
	}
	b := loadListing(t, db, listingB)
	if b.AvailableQty != 0 || b.ReservedQty != 2 || b.Status != enums.ListingStatusSoldOut {
		t.Fatalf("expected listing b sold out: %+v", b)
	}
}

func TestReserveValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listing := seedListing(t, db, 5)

	err := Reserve(ctx, db, []ReservationRequest{{ListingID: listing, Qty: 0}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	err = Reserve(ctx, db, []ReservationRequest{{ListingID: uuid.New(), Qty: 1}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseRevivesSoldOut(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listing := seedListing(t, db, 2)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{{ListingID: listing, Qty: 2}})
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, listing, 2)
	}); err != nil {
		t.Fatalf("release: %v", err)
	}

	got := loadListing(t, db, listing)
	if got.AvailableQty != 2 || got.ReservedQty != 0 || got.Status != enums.ListingStatusActive {
		t.Fatalf("release did not restore listing: %+v", got)
	}
}

func TestReleaseWithoutReservation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listing := seedListing(t, db, 2)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{{ListingID: listing, Qty: 2}})
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, listing, 2)
	}); err != nil {
		t.Fatalf("release: %v", err)
	}

	// A second release has no reservation left to return.
	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, listing, 2)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeAlreadyDone {
		t.Fatalf("duplicate release should surface, got %v", err)
	}
	got := loadListing(t, db, listing)
	if got.AvailableQty != 2 || got.ReservedQty != 0 {
		t.Fatalf("duplicate release must not change counters: %+v", got)
	}
}

func TestCommitBurnsReservation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listing := seedListing(t, db, 5)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []ReservationRequest{{ListingID: listing, Qty: 3}})
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return Commit(ctx, tx, listing, 3)
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got := loadListing(t, db, listing)
	if got.AvailableQty != 2 || got.ReservedQty != 0 {
		t.Fatalf("commit should only burn reserved stock: %+v", got)
	}
}

func TestCheckAvailability(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listing := seedListing(t, db, 4)

	avail, err := CheckAvailability(ctx, db, listing)
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if avail.AvailableQty != 4 || avail.Status != enums.ListingStatusActive {
		t.Fatalf("unexpected availability: %+v", avail)
	}

	if _, err := CheckAvailability(ctx, db, uuid.New()); err == nil {
		t.Fatal("expected not found")
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Listing{}); err != nil {
		t.Fatalf("migrate listings: %v", err)
	}
	return db
}

func seedListing(t *testing.T, db *gorm.DB, available int) uuid.UUID {
	t.Helper()
	listing := models.Listing{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		CardID:       "base-001",
		CardName:     "Test Card",
		Condition:    enums.CardConditionNearMint,
		Price:        decimal.NewFromFloat(12.50),
		AvailableQty: available,
		Status:       enums.ListingStatusActive,
	}
	if err := db.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing.ID
}

func loadListing(t *testing.T, db *gorm.DB, id uuid.UUID) models.Listing {
	t.Helper()
	var listing models.Listing
	if err := db.First(&listing, "id = ?", id).Error; err != nil {
		t.Fatalf("load listing: %v", err)
	}
	return listing
}

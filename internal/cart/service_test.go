package cart

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/internal/listings"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Listing{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), listings.NewRepository(db), nil, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedListing(t *testing.T, db *gorm.DB, sellerID uuid.UUID, price int64, available int) uuid.UUID {
	t.Helper()
	listing := models.Listing{
		ID:           uuid.New(),
		SellerID:     sellerID,
		CardID:       "sv3-125",
		CardName:     "Charizard ex",
		Condition:    enums.CardConditionNearMint,
		Price:        decimal.NewFromInt(price),
		AvailableQty: available,
		Status:       enums.ListingStatusActive,
	}
	if err := db.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing.ID
}

func TestAddToCart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := seedListing(t, db, uuid.New(), 25, 4)

	cart, err := svc.AddToCart(ctx, buyer, listing, 2)
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if cart.ItemCount != 2 || !cart.Subtotal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected cart totals: %+v", cart)
	}
}

func TestAddToCartRejectsSumBeyondAvailability(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := seedListing(t, db, uuid.New(), 10, 3)

	if _, err := svc.AddToCart(ctx, buyer, listing, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err := svc.AddToCart(ctx, buyer, listing, 2)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("summed quantity over availability must fail, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["addable"] != 1 || details["in_cart"] != 2 {
		t.Fatalf("details should report remaining headroom, got %v", typed.Details())
	}

	cart, err := svc.GetCart(ctx, buyer)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.ItemCount != 2 {
		t.Fatalf("failed add must not mutate the cart, got %d items", cart.ItemCount)
	}
}

func TestAddToCartInsufficientStock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	listing := seedListing(t, db, uuid.New(), 10, 1)

	_, err := svc.AddToCart(ctx, uuid.New(), listing, 5)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["available"] != 1 {
		t.Fatalf("details should report actual stock, got %v", typed.Details())
	}
}

func TestAddToCartSelfPurchase(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	seller := uuid.New()
	listing := seedListing(t, db, seller, 10, 2)

	_, err := svc.AddToCart(ctx, seller, listing, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotEligible {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := seedListing(t, db, uuid.New(), 10, 5)

	if _, err := svc.AddToCart(ctx, buyer, listing, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := svc.UpdateQuantity(ctx, buyer, listing, 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if cart.ItemCount != 4 {
		t.Fatalf("expected 4 items, got %d", cart.ItemCount)
	}

	cart, err = svc.UpdateQuantity(ctx, buyer, listing, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("zero quantity should remove the line")
	}
}

func TestGroupByVendor(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()

	listingA1 := seedListing(t, db, sellerA, 10, 5)
	listingA2 := seedListing(t, db, sellerA, 20, 5)
	listingB := seedListing(t, db, sellerB, 7, 5)

	for _, add := range []struct {
		listing uuid.UUID
		qty     int
	}{
		{listingA1, 2},
		{listingA2, 1},
		{listingB, 3},
	} {
		if _, err := svc.AddToCart(ctx, buyer, add.listing, add.qty); err != nil {
			t.Fatalf("add %s: %v", add.listing, err)
		}
	}

	groups, err := svc.GroupByVendor(ctx, buyer)
	if err != nil {
		t.Fatalf("group by vendor: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 vendor groups, got %d", len(groups))
	}
	if groups[0].SellerID != sellerA || len(groups[0].Lines) != 2 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if !groups[0].Subtotal.Equal(decimal.NewFromInt(40)) || groups[0].ItemCount != 3 {
		t.Fatalf("unexpected group a totals: %+v", groups[0])
	}
	if !groups[1].Subtotal.Equal(decimal.NewFromInt(21)) || groups[1].ItemCount != 3 {
		t.Fatalf("unexpected group b totals: %+v", groups[1])
	}
}

func TestClearCart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := seedListing(t, db, uuid.New(), 10, 5)

	if _, err := svc.AddToCart(ctx, buyer, listing, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.ClearCart(ctx, buyer); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cart, err := svc.GetCart(ctx, buyer)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("cart should be empty")
	}
}

package ratings

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/internal/cart"
	"github.com/cartaviva/cartaviva-backend/internal/listings"
	"github.com/cartaviva/cartaviva-backend/internal/transactions"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
	"github.com/cartaviva/cartaviva-backend/pkg/outbox"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeOutbox struct {
	events []enums.OutboxEventType
}

func (f *fakeOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	f.events = append(f.events, event.EventType)
	return nil
}

type fixture struct {
	svc    *Service
	txns   *transactions.Service
	db     *gorm.DB
	outbox *fakeOutbox
	buyer  uuid.UUID
	seller uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:ratings_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.CartItem{},
		&models.Transaction{},
		&models.TransactionLineItem{},
		&models.Rating{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	fake := &fakeOutbox{}
	runner := testTxRunner{db: db}

	txnRepo := transactions.NewRepository(db)
	txns, err := transactions.NewService(txnRepo, cart.NewRepository(db), listings.NewRepository(db), runner, fake, logg)
	if err != nil {
		t.Fatalf("transactions service: %v", err)
	}
	svc, err := NewService(NewRepository(db), txns, txnRepo, runner, fake, logg)
	if err != nil {
		t.Fatalf("ratings service: %v", err)
	}

	f := &fixture{svc: svc, txns: txns, db: db, outbox: fake}
	f.buyer = f.seedUser(t, "buyer@example.com")
	f.seller = f.seedUser(t, "seller@example.com")
	return f
}

func (f *fixture) seedUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		DisplayName:  email,
		IsActive:     true,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

// ratableTransaction seeds a listing and cart line, then walks a fresh
// transaction to completed_pending_rating.
func (f *fixture) ratableTransaction(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	listing := models.Listing{
		ID:           uuid.New(),
		SellerID:     f.seller,
		CardID:       "sv4-6",
		CardName:     "Charizard ex",
		Condition:    enums.CardConditionNearMint,
		Price:        decimal.NewFromInt(120),
		AvailableQty: 3,
		Status:       enums.ListingStatusActive,
	}
	if err := f.db.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	line := models.CartItem{
		ID:        uuid.New(),
		BuyerID:   f.buyer,
		ListingID: listing.ID,
		SellerID:  f.seller,
		Quantity:  1,
	}
	if err := f.db.Create(&line).Error; err != nil {
		t.Fatalf("seed cart line: %v", err)
	}

	txn, err := f.txns.CreateFromCartGroup(ctx, transactions.CheckoutInput{
		BuyerID:       f.buyer,
		SellerID:      f.seller,
		ContactMethod: enums.ContactMethodWhatsApp,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if err := f.txns.Accept(ctx, transactions.AcceptInput{SellerID: f.seller, TransactionID: txn.ID, OriginStore: "Centro", EstimatedDeliveryDays: 2}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := f.txns.ConfirmDelivery(ctx, transactions.DeliveryInput{SellerID: f.seller, TransactionID: txn.ID}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := f.txns.ConfirmPaymentReceived(ctx, transactions.PaymentInput{SellerID: f.seller, TransactionID: txn.ID, Method: enums.PaymentMethodCash, Amount: decimal.NewFromInt(120)}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if err := f.txns.ConfirmReceipt(ctx, transactions.ReceiptInput{BuyerID: f.buyer, TransactionID: txn.ID, DestinationStore: "Sur", SatisfactionLevel: enums.SatisfactionLevelSatisfied}); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	return txn.ID
}

func (f *fixture) loadUser(t *testing.T, id uuid.UUID) models.User {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user
}

func TestSubmitUpdatesAggregates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	txnID := f.ratableTransaction(t)

	comment := "fast shipper, card as described"
	rating, err := f.svc.Submit(ctx, SubmitInput{
		RaterID:       f.buyer,
		TransactionID: txnID,
		Stars:         4,
		Comment:       &comment,
		Categories:    map[string]int{"communication": 5, "packaging": 4},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rating.Direction != enums.RatingDirectionBuyerOnSeller || rating.RateeID != f.seller {
		t.Fatalf("direction not derived from parties: %+v", rating)
	}

	seller := f.loadUser(t, f.seller)
	if !seller.Rating.Equal(decimal.NewFromInt(4)) || seller.Reviews != 1 {
		t.Fatalf("aggregates not recomputed: rating=%s reviews=%d", seller.Rating, seller.Reviews)
	}

	second := f.ratableTransaction(t)
	if _, err := f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: second, Stars: 2}); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	seller = f.loadUser(t, f.seller)
	if !seller.Rating.Equal(decimal.NewFromInt(3)) || seller.Reviews != 2 {
		t.Fatalf("aggregates should average, got rating=%s reviews=%d", seller.Rating, seller.Reviews)
	}
}

func TestSubmitBothSidesCompletesTransaction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	txnID := f.ratableTransaction(t)

	if _, err := f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: txnID, Stars: 5}); err != nil {
		t.Fatalf("buyer submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{RaterID: f.seller, TransactionID: txnID, Stars: 5}); err != nil {
		t.Fatalf("seller submit: %v", err)
	}

	var txn models.Transaction
	if err := f.db.First(&txn, "id = ?", txnID).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if txn.Status != enums.TransactionStatusCompleted {
		t.Fatalf("expected completed after both ratings, got %s", txn.Status)
	}
	if !txn.BuyerRated || !txn.SellerRated {
		t.Fatalf("rated flags not set: %+v", txn)
	}
}

func TestSubmitRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	txnID := f.ratableTransaction(t)

	if _, err := f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: txnID, Stars: 3}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: txnID, Stars: 5})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeAlreadyDone {
		t.Fatalf("expected already done, got %v", err)
	}

	seller := f.loadUser(t, f.seller)
	if seller.Reviews != 1 {
		t.Fatalf("duplicate must not touch aggregates, reviews=%d", seller.Reviews)
	}
}

func TestSubmitEligibility(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	txnID := f.ratableTransaction(t)

	_, err := f.svc.Submit(ctx, SubmitInput{RaterID: uuid.New(), TransactionID: txnID, Stars: 5})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("stranger rating should be forbidden, got %v", err)
	}

	_, err = f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: uuid.New(), Stars: 5})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("missing transaction should be not found, got %v", err)
	}

	_, err = f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: txnID, Stars: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("stars out of range should fail validation, got %v", err)
	}
}

func TestSubmitBeforeRatingStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	listing := models.Listing{
		ID:           uuid.New(),
		SellerID:     f.seller,
		CardID:       "sv4-6",
		CardName:     "Charizard ex",
		Condition:    enums.CardConditionGood,
		Price:        decimal.NewFromInt(50),
		AvailableQty: 1,
		Status:       enums.ListingStatusActive,
	}
	if err := f.db.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	line := models.CartItem{ID: uuid.New(), BuyerID: f.buyer, ListingID: listing.ID, SellerID: f.seller, Quantity: 1}
	if err := f.db.Create(&line).Error; err != nil {
		t.Fatalf("seed cart line: %v", err)
	}
	txn, err := f.txns.CreateFromCartGroup(ctx, transactions.CheckoutInput{
		BuyerID:       f.buyer,
		SellerID:      f.seller,
		ContactMethod: enums.ContactMethodWhatsApp,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	_, err = f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: txn.ID, Stars: 5})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotEligible {
		t.Fatalf("pending transaction should not be ratable, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		txnID := f.ratableTransaction(t)
		if _, err := f.svc.Submit(ctx, SubmitInput{RaterID: f.buyer, TransactionID: txnID, Stars: 3 + i%2}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	page, err := f.svc.ListForUser(ctx, f.seller, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Ratings) != 2 || page.NextCursor == "" {
		t.Fatalf("expected a full first page with cursor, got %d/%q", len(page.Ratings), page.NextCursor)
	}

	rest, err := f.svc.ListForUser(ctx, f.seller, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest.Ratings) != 1 || rest.NextCursor != "" {
		t.Fatalf("expected final page of one, got %d/%q", len(rest.Ratings), rest.NextCursor)
	}
}

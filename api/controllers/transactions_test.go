package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	txnsvc "github.com/cartaviva/cartaviva-backend/internal/transactions"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/pagination"
)

type stubTransactionsService struct {
	txn  *models.Transaction
	page *txnsvc.ListResult
	err  error

	buyerListed   bool
	sellerListed  bool
	acceptInput   *txnsvc.AcceptInput
	checkoutInput *txnsvc.CheckoutInput
}

func (s *stubTransactionsService) CreateFromCartGroup(ctx context.Context, input txnsvc.CheckoutInput) (*models.Transaction, error) {
	s.checkoutInput = &input
	return s.txn, s.err
}

func (s *stubTransactionsService) Get(ctx context.Context, partyID, txnID uuid.UUID) (*models.Transaction, error) {
	return s.txn, s.err
}

func (s *stubTransactionsService) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filter txnsvc.ListFilter) (*txnsvc.ListResult, error) {
	s.buyerListed = true
	return s.page, s.err
}

func (s *stubTransactionsService) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filter txnsvc.ListFilter) (*txnsvc.ListResult, error) {
	s.sellerListed = true
	return s.page, s.err
}

func (s *stubTransactionsService) Accept(ctx context.Context, input txnsvc.AcceptInput) error {
	s.acceptInput = &input
	return s.err
}

func (s *stubTransactionsService) Reject(ctx context.Context, input txnsvc.RejectInput) error {
	return s.err
}

func (s *stubTransactionsService) ConfirmDelivery(ctx context.Context, input txnsvc.DeliveryInput) error {
	return s.err
}

func (s *stubTransactionsService) ConfirmPaymentReceived(ctx context.Context, input txnsvc.PaymentInput) error {
	return s.err
}

func (s *stubTransactionsService) ConfirmReceipt(ctx context.Context, input txnsvc.ReceiptInput) error {
	return s.err
}

func sampleTransaction() *models.Transaction {
	return &models.Transaction{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		SellerID:        uuid.New(),
		Status:          enums.TransactionStatusPendingSellerResponse,
		StatusChangedAt: time.Now(),
		Total:           decimal.NewFromInt(45),
		ItemCount:       3,
	}
}

func TestCheckoutSuccess(t *testing.T) {
	svc := &stubTransactionsService{txn: sampleTransaction()}
	handler := Checkout(svc, nil)

	body := `{"sellerId":"` + uuid.NewString() + `","contactMethod":"email","buyerNotes":"ring twice"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/transactions/checkout", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data transactionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.TransactionStatusPendingSellerResponse {
		t.Fatalf("unexpected status: %s", envelope.Data.Status)
	}
	if svc.checkoutInput == nil {
		t.Fatalf("checkout input not captured")
	}
	if svc.checkoutInput.ContactMethod != enums.ContactMethodEmail {
		t.Fatalf("unexpected contact method: %s", svc.checkoutInput.ContactMethod)
	}
	if svc.checkoutInput.BuyerNotes == nil || *svc.checkoutInput.BuyerNotes != "ring twice" {
		t.Fatalf("buyer notes not passed through")
	}
}

func TestCheckoutRejectsUnknownContactMethod(t *testing.T) {
	handler := Checkout(&stubTransactionsService{txn: sampleTransaction()}, nil)

	body := `{"sellerId":"` + uuid.NewString() + `","contactMethod":"carrier_pigeon"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/transactions/checkout", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	svc := &stubTransactionsService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "listing sold out")}
	handler := Checkout(svc, nil)

	body := `{"sellerId":"` + uuid.NewString() + `","contactMethod":"whatsapp"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/transactions/checkout", body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestListTransactionsDefaultsToBuyer(t *testing.T) {
	svc := &stubTransactionsService{page: &txnsvc.ListResult{}}
	handler := ListTransactions(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/transactions", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.buyerListed || svc.sellerListed {
		t.Fatalf("expected buyer listing only")
	}
}

func TestListTransactionsSellerRole(t *testing.T) {
	svc := &stubTransactionsService{page: &txnsvc.ListResult{}}
	handler := ListTransactions(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/transactions?role=seller", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.sellerListed || svc.buyerListed {
		t.Fatalf("expected seller listing only")
	}
}

func TestListTransactionsRejectsUnknownRole(t *testing.T) {
	handler := ListTransactions(&stubTransactionsService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/transactions?role=admin", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptTransactionPassesInput(t *testing.T) {
	svc := &stubTransactionsService{}
	handler := AcceptTransaction(svc, nil)

	txnID := uuid.New()
	body := `{"originStore":"Cartaviva Condesa","estimatedDeliveryDays":3}`
	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/accept", body), "transactionId", txnID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.acceptInput == nil {
		t.Fatalf("accept input not captured")
	}
	if svc.acceptInput.TransactionID != txnID {
		t.Fatalf("transaction id mismatch")
	}
	if svc.acceptInput.EstimatedDeliveryDays != 3 {
		t.Fatalf("unexpected delivery days: %d", svc.acceptInput.EstimatedDeliveryDays)
	}
}

func TestAcceptTransactionInvalidBody(t *testing.T) {
	handler := AcceptTransaction(&stubTransactionsService{}, nil)

	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/accept", `{"originStore":""}`), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRejectTransactionInvalidTransition(t *testing.T) {
	svc := &stubTransactionsService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "already accepted")}
	handler := RejectTransaction(svc, nil)

	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/reject", `{"reason":"out of stock"}`), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestConfirmPaymentRejectsUnknownMethod(t *testing.T) {
	handler := ConfirmPayment(&stubTransactionsService{}, nil)

	body := `{"method":"barter","amount":"45"}`
	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/payment", body), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmReceiptRejectsUnknownSatisfaction(t *testing.T) {
	handler := ConfirmReceipt(&stubTransactionsService{}, nil)

	body := `{"destinationStore":"Cartaviva Roma","satisfactionLevel":"meh"}`
	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/receipt", body), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

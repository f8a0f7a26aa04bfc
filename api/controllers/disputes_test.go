package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	disputesvc "github.com/cartaviva/cartaviva-backend/internal/disputes"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
)

type stubDisputesService struct {
	dispute  *models.Dispute
	disputes []models.Dispute
	err      error

	openInput *disputesvc.OpenInput
}

func (s *stubDisputesService) Open(ctx context.Context, input disputesvc.OpenInput) (*models.Dispute, error) {
	s.openInput = &input
	return s.dispute, s.err
}

func (s *stubDisputesService) Resolve(ctx context.Context, input disputesvc.ResolveInput) error {
	return s.err
}

func (s *stubDisputesService) ListForTransaction(ctx context.Context, requesterID, transactionID uuid.UUID) ([]models.Dispute, error) {
	return s.disputes, s.err
}

func TestOpenDisputeSuccess(t *testing.T) {
	txnID := uuid.New()
	svc := &stubDisputesService{dispute: &models.Dispute{
		ID:            uuid.New(),
		TransactionID: txnID,
		OpenerID:      uuid.New(),
		Type:          enums.DisputeTypeNotReceived,
		Description:   "package never arrived",
		Severity:      enums.DisputeSeverityHigh,
		Status:        enums.DisputeStatusOpen,
	}}
	handler := OpenDispute(svc, nil)

	body := `{"type":"not_received","description":"package never arrived"}`
	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/disputes", body), "transactionId", txnID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.openInput == nil || svc.openInput.TransactionID != txnID {
		t.Fatalf("open input not forwarded")
	}
	var envelope struct {
		Data disputeResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Severity != enums.DisputeSeverityHigh {
		t.Fatalf("unexpected severity: %s", envelope.Data.Severity)
	}
}

func TestOpenDisputeInvalidType(t *testing.T) {
	handler := OpenDispute(&stubDisputesService{}, nil)

	body := `{"type":"vibes","description":"bad vibes"}`
	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/disputes", body), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOpenDisputeNotParty(t *testing.T) {
	svc := &stubDisputesService{err: pkgerrors.New(pkgerrors.CodeNotEligible, "not a party to this transaction")}
	handler := OpenDispute(svc, nil)

	body := `{"type":"wrong_item","description":"received a different card"}`
	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/transactions/x/disputes", body), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestListTransactionDisputesSuccess(t *testing.T) {
	svc := &stubDisputesService{disputes: []models.Dispute{
		{ID: uuid.New(), Type: enums.DisputeTypeWrongItem, Status: enums.DisputeStatusOpen},
	}}
	handler := ListTransactionDisputes(svc, nil)

	req := withPathParam(authedRequest(http.MethodGet, "/api/v1/transactions/x/disputes", ""), "transactionId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Disputes []disputeResponse `json:"disputes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Disputes) != 1 {
		t.Fatalf("expected 1 dispute got %d", len(envelope.Data.Disputes))
	}
}

func TestResolveDisputeAlreadyResolved(t *testing.T) {
	svc := &stubDisputesService{err: pkgerrors.New(pkgerrors.CodeAlreadyDone, "dispute already resolved")}
	handler := ResolveDispute(svc, nil)

	req := withPathParam(authedRequest(http.MethodPost, "/api/v1/disputes/x/resolve", `{"resolution":"refund agreed"}`), "disputeId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

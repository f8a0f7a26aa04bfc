package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/api/responses"
	"github.com/cartaviva/cartaviva-backend/api/validators"
	disputesvc "github.com/cartaviva/cartaviva-backend/internal/disputes"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
)

type disputesService interface {
	Open(ctx context.Context, input disputesvc.OpenInput) (*models.Dispute, error)
	Resolve(ctx context.Context, input disputesvc.ResolveInput) error
	ListForTransaction(ctx context.Context, requesterID, transactionID uuid.UUID) ([]models.Dispute, error)
}

type openDisputeRequest struct {
	Type        string   `json:"type" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Evidence    []string `json:"evidence,omitempty"`
}

// OpenDispute raises a dispute on one of the caller's transactions.
func OpenDispute(svc disputesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body openDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputeType, err := enums.ParseDisputeType(strings.TrimSpace(body.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute type"))
			return
		}

		dispute, err := svc.Open(r.Context(), disputesvc.OpenInput{
			OpenerID:      uid,
			TransactionID: txnID,
			Type:          disputeType,
			Description:   body.Description,
			Evidence:      body.Evidence,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, disputeFromModel(dispute))
	}
}

// ListTransactionDisputes returns a transaction's disputes to its parties.
func ListTransactionDisputes(svc disputesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputes, err := svc.ListForTransaction(r.Context(), uid, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]disputeResponse, 0, len(disputes))
		for i := range disputes {
			out = append(out, disputeFromModel(&disputes[i]))
		}
		responses.WriteSuccess(w, map[string][]disputeResponse{"disputes": out})
	}
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required"`
}

// ResolveDispute closes an open dispute with an outcome note.
func ResolveDispute(svc disputesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputeID, err := pathID(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Resolve(r.Context(), disputesvc.ResolveInput{
			ResolverID: uid,
			DisputeID:  disputeID,
			Resolution: body.Resolution,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resolved"})
	}
}

package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/api/responses"
	"github.com/cartaviva/cartaviva-backend/api/validators"
	usersvc "github.com/cartaviva/cartaviva-backend/internal/users"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
)

type usersService interface {
	Me(ctx context.Context, userID uuid.UUID) (*usersvc.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, dto usersvc.UpdateProfileDTO) (*usersvc.UserDTO, error)
	PublicProfile(ctx context.Context, userID uuid.UUID) (*usersvc.PublicProfileDTO, error)
}

// GetMe returns the caller's own account.
func GetMe(svc usersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Me(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=120"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	City        *string `json:"city,omitempty" validate:"omitempty,max=120"`
}

// UpdateMe edits the caller's profile. Absent fields stay untouched.
func UpdateMe(svc usersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateProfile(r.Context(), uid, usersvc.UpdateProfileDTO{
			DisplayName: body.DisplayName,
			Phone:       body.Phone,
			City:        body.City,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// GetPublicProfile returns another user's public view.
func GetPublicProfile(svc usersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := pathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.PublicProfile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
)

// Service exposes profile reads and edits on top of the repository.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Me returns the caller's own account view.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// PublicProfile returns the profile shape other users are allowed to see.
func (s *Service) PublicProfile(ctx context.Context, userID uuid.UUID) (*PublicProfileDTO, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return PublicProfileFromModel(user), nil
}

// UpdateProfile applies the non-nil fields and returns the fresh view.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, dto UpdateProfileDTO) (*UserDTO, error) {
	if dto.DisplayName != nil && strings.TrimSpace(*dto.DisplayName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name cannot be empty")
	}

	if _, err := s.find(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, userID, dto); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update profile")
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", userID.String()), "profile updated")
	return FromModel(user), nil
}

func (s *Service) find(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load user")
	}
	return user, nil
}

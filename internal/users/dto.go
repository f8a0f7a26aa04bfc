package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	Phone       *string         `json:"phone,omitempty"`
	City        *string         `json:"city,omitempty"`
	Rating      decimal.Decimal `json:"rating"`
	Reviews     int             `json:"reviews"`
	IsActive    bool            `json:"isActive"`
	LastLoginAt *time.Time      `json:"lastLoginAt,omitempty"`
	SystemRole  *string         `json:"systemRole,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PublicProfileDTO is the shape other users see: no email, no account flags.
type PublicProfileDTO struct {
	ID          uuid.UUID       `json:"id"`
	DisplayName string          `json:"displayName"`
	City        *string         `json:"city,omitempty"`
	Rating      decimal.Decimal `json:"rating"`
	Reviews     int             `json:"reviews"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Phone        *string
	City         *string
	SystemRole   *string
	IsActive     *bool
}

// UpdateProfileDTO carries the mutable profile fields. Nil means keep.
type UpdateProfileDTO struct {
	DisplayName *string
	Phone       *string
	City        *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		City:        u.City,
		Rating:      u.Rating,
		Reviews:     u.Reviews,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		SystemRole:  u.SystemRole,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func PublicProfileFromModel(u *models.User) *PublicProfileDTO {
	if u == nil {
		return nil
	}

	return &PublicProfileDTO{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		City:        u.City,
		Rating:      u.Rating,
		Reviews:     u.Reviews,
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		DisplayName:  c.DisplayName,
		Phone:        c.Phone,
		City:         c.City,
		IsActive:     isActive,
		SystemRole:   c.SystemRole,
	}
}

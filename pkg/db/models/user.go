package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a marketplace participant. Every user can buy and sell.
// Rating and Reviews are denormalized aggregates recomputed inside the
// same transaction that inserts each rating row.
type User struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string          `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	DisplayName  string          `gorm:"column:display_name;type:text;not null"`
	Phone        *string         `gorm:"column:phone"`
	City         *string         `gorm:"column:city;type:text"`
	Rating       decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	Reviews      int             `gorm:"column:reviews;not null;default:0"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	SystemRole   *string         `gorm:"column:system_role"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

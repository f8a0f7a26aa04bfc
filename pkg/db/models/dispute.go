package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/pkg/enums"
)

// Dispute is the record behind a transaction's disputed flag.
type Dispute struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID             `gorm:"column:transaction_id;type:uuid;not null;index"`
	OpenerID      uuid.UUID             `gorm:"column:opener_id;type:uuid;not null"`
	Type          enums.DisputeType     `gorm:"column:type;type:dispute_type;not null"`
	Description   string                `gorm:"column:description;type:text;not null"`
	Evidence      []string              `gorm:"column:evidence;type:jsonb;serializer:json"`
	Severity      enums.DisputeSeverity `gorm:"column:severity;type:dispute_severity;not null"`
	Status        enums.DisputeStatus   `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	Resolution    *string               `gorm:"column:resolution;type:text"`
	ResolvedAt    *time.Time            `gorm:"column:resolved_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

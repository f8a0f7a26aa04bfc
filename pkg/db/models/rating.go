package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartaviva/cartaviva-backend/pkg/enums"
	"github.com/cartaviva/cartaviva-backend/pkg/types"
)

// Rating is one party's review of the other for a single transaction.
// The unique (rater_id, transaction_id) index enforces one per rater.
type Rating struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID             `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:ux_ratings_rater_transaction"`
	RaterID       uuid.UUID             `gorm:"column:rater_id;type:uuid;not null;uniqueIndex:ux_ratings_rater_transaction"`
	RateeID       uuid.UUID             `gorm:"column:ratee_id;type:uuid;not null;index"`
	Direction     enums.RatingDirection `gorm:"column:direction;type:rating_direction;not null"`
	Stars         int                   `gorm:"column:stars;not null"`
	Comment       *string               `gorm:"column:comment;type:text"`
	Categories    types.Ratings         `gorm:"column:categories;type:jsonb"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}

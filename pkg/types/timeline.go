package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Timeline milestone keys, serialized as-is into the jsonb column.
const (
	TimelineCreated          = "created"
	TimelineAccepted         = "accepted"
	TimelineDelivered        = "delivered"
	TimelinePaymentConfirmed = "paymentConfirmed"
	TimelineReceiptConfirmed = "receiptConfirmed"
	TimelineCompleted        = "completed"
	TimelineCancelled        = "cancelled"
)

// Timeline records when each lifecycle milestone happened.
type Timeline map[string]time.Time

// Stamp sets the milestone, allocating the map when needed.
func (t Timeline) Stamp(key string, at time.Time) Timeline {
	if t == nil {
		t = make(Timeline)
	}
	t[key] = at.UTC()
	return t
}

// At returns the milestone timestamp if stamped.
func (t Timeline) At(key string) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	at, ok := t[key]
	return at, ok
}

// Value marshals the map into JSON for Postgres.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the map.
func (t *Timeline) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("timeline: unsupported scan type %T", value)
	}

	result := make(Timeline)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*t = result
	return nil
}

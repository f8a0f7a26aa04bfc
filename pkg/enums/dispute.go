package enums

import "fmt"

// DisputeType categorizes why a dispute was opened.
type DisputeType string

const (
	DisputeTypeNotReceived   DisputeType = "not_received"
	DisputeTypeWrongItem     DisputeType = "wrong_item"
	DisputeTypePaymentIssue  DisputeType = "payment_issue"
	DisputeTypeCommunication DisputeType = "communication"
)

var validDisputeTypes = []DisputeType{
	DisputeTypeNotReceived,
	DisputeTypeWrongItem,
	DisputeTypePaymentIssue,
	DisputeTypeCommunication,
}

// String implements fmt.Stringer.
func (d DisputeType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeType.
func (d DisputeType) IsValid() bool {
	for _, candidate := range validDisputeTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeType converts raw input into a DisputeType.
func ParseDisputeType(value string) (DisputeType, error) {
	for _, candidate := range validDisputeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute type %q", value)
}

// DisputeSeverity ranks how urgently a dispute needs review.
type DisputeSeverity string

const (
	DisputeSeverityLow    DisputeSeverity = "low"
	DisputeSeverityMedium DisputeSeverity = "medium"
	DisputeSeverityHigh   DisputeSeverity = "high"
)

var validDisputeSeverities = []DisputeSeverity{
	DisputeSeverityLow,
	DisputeSeverityMedium,
	DisputeSeverityHigh,
}

// String implements fmt.Stringer.
func (d DisputeSeverity) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeSeverity.
func (d DisputeSeverity) IsValid() bool {
	for _, candidate := range validDisputeSeverities {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeSeverity converts raw input into a DisputeSeverity.
func ParseDisputeSeverity(value string) (DisputeSeverity, error) {
	for _, candidate := range validDisputeSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute severity %q", value)
}

// DisputeStatus tracks whether a dispute is still open.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusResolved,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

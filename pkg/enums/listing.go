package enums

import "fmt"

// ListingStatus maps to the listing_status enum in Postgres.
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusSoldOut  ListingStatus = "sold_out"
	ListingStatusArchived ListingStatus = "archived"
)

var validListingStatuses = []ListingStatus{
	ListingStatusActive,
	ListingStatusSoldOut,
	ListingStatusArchived,
}

// String implements fmt.Stringer.
func (l ListingStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingStatus.
func (l ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}

// CardCondition grades the physical state of a listed card.
type CardCondition string

const (
	CardConditionMint      CardCondition = "mint"
	CardConditionNearMint  CardCondition = "near_mint"
	CardConditionExcellent CardCondition = "excellent"
	CardConditionGood      CardCondition = "good"
	CardConditionPlayed    CardCondition = "played"
)

var validCardConditions = []CardCondition{
	CardConditionMint,
	CardConditionNearMint,
	CardConditionExcellent,
	CardConditionGood,
	CardConditionPlayed,
}

// String implements fmt.Stringer.
func (c CardCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CardCondition.
func (c CardCondition) IsValid() bool {
	for _, candidate := range validCardConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCardCondition converts raw input into a CardCondition.
func ParseCardCondition(value string) (CardCondition, error) {
	for _, candidate := range validCardConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid card condition %q", value)
}

package enums

import "fmt"

// RatingDirection records which party rated which.
type RatingDirection string

const (
	RatingDirectionBuyerOnSeller RatingDirection = "buyer_on_seller"
	RatingDirectionSellerOnBuyer RatingDirection = "seller_on_buyer"
)

var validRatingDirections = []RatingDirection{
	RatingDirectionBuyerOnSeller,
	RatingDirectionSellerOnBuyer,
}

// String implements fmt.Stringer.
func (r RatingDirection) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RatingDirection.
func (r RatingDirection) IsValid() bool {
	for _, candidate := range validRatingDirections {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRatingDirection converts raw input into a RatingDirection.
func ParseRatingDirection(value string) (RatingDirection, error) {
	for _, candidate := range validRatingDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rating direction %q", value)
}

// SatisfactionLevel is the buyer's self-reported outcome at receipt time.
type SatisfactionLevel string

const (
	SatisfactionLevelSatisfied   SatisfactionLevel = "satisfied"
	SatisfactionLevelNeutral     SatisfactionLevel = "neutral"
	SatisfactionLevelUnsatisfied SatisfactionLevel = "unsatisfied"
)

var validSatisfactionLevels = []SatisfactionLevel{
	SatisfactionLevelSatisfied,
	SatisfactionLevelNeutral,
	SatisfactionLevelUnsatisfied,
}

// String implements fmt.Stringer.
func (s SatisfactionLevel) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SatisfactionLevel.
func (s SatisfactionLevel) IsValid() bool {
	for _, candidate := range validSatisfactionLevels {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSatisfactionLevel converts raw input into a SatisfactionLevel.
func ParseSatisfactionLevel(value string) (SatisfactionLevel, error) {
	for _, candidate := range validSatisfactionLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid satisfaction level %q", value)
}

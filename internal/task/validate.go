package task

import (
	"fmt"
	"strings"

	"github.com/zealmehta21/nevermiss/internal/errors"
)

// MaxTitleChars bounds task titles.
const MaxTitleChars = 500

// ValidateTitle checks a title is present and not oversized.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.NewInvalidRequest("title is required")
	}
	if n := len([]rune(title)); n > MaxTitleChars {
		return errors.NewInvalidRequest(fmt.Sprintf("title exceeds maximum length: %d chars (max %d)", n, MaxTitleChars))
	}
	return nil
}

// ValidatePriority rejects values outside the priority enumeration.
func ValidatePriority(p Priority) error {
	switch p {
	case PriorityP0, PriorityHigh, PriorityMedium, PriorityLow:
		return nil
	}
	return errors.NewInvalidRequest(fmt.Sprintf("priority must be one of: p0, high, medium, low (got %q)", p))
}

// ValidateStatus rejects values outside the status enumeration.
func ValidateStatus(s Status) error {
	if _, ok := ParseStatus(string(s)); !ok {
		return errors.NewInvalidRequest(fmt.Sprintf("status must be one of: pending, completed, snoozed, deleted (got %q)", s))
	}
	return nil
}

// ValidateTimestamp checks that a stored timestamp is RFC 3339 with an explicit offset.
// A bare "Z" is refused: stored values must be rebuilt in the owner's timezone first.
func ValidateTimestamp(field string, v *string) error {
	if v == nil {
		return nil
	}
	if !HasExplicitOffset(*v) {
		return errors.NewUnverifiedDatetime(field, *v)
	}
	return nil
}

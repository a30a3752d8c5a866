package task

import (
	"regexp"
	"strings"
	"time"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// offsetSuffix matches an explicit numeric offset at the end of an RFC 3339 value.
var offsetSuffix = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)

// Normalize trims, lowercases, and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CleanTitle trims a title and collapses internal whitespace without changing case.
func CleanTitle(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParsePriority maps free-form input to a Priority. Empty input yields the default.
func ParsePriority(s string) (Priority, bool) {
	switch Normalize(s) {
	case "":
		return PriorityMedium, true
	case "p0", "urgent", "critical":
		return PriorityP0, true
	case "high", "p1":
		return PriorityHigh, true
	case "medium", "normal", "p2":
		return PriorityMedium, true
	case "low", "p3":
		return PriorityLow, true
	}
	return "", false
}

// ParseStatus maps input to a Status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(Normalize(s)); st {
	case StatusPending, StatusCompleted, StatusSnoozed, StatusDeleted:
		return st, true
	}
	return "", false
}

// HasExplicitOffset reports whether v is RFC 3339 with a numeric offset (not "Z").
func HasExplicitOffset(v string) bool {
	if _, err := time.Parse(time.RFC3339, v); err != nil {
		return false
	}
	return offsetSuffix.MatchString(v)
}

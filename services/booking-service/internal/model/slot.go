package model

import (
	"strings"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
)

// FormatSlot renders the label of the slot [start, end).
func FormatSlot(start, end Clock) string {
	return start.String() + "-" + end.String()
}

// ParseSlot parses an "HH:MM-HH:MM" label whose end is after its start.
// Surrounding whitespace is ignored.
func ParseSlot(label string) (start, end Clock, err error) {
	label = strings.TrimSpace(label)
	from, to, ok := strings.Cut(label, "-")
	if !ok {
		return 0, 0, apperr.Validation("time slot %q must be HH:MM-HH:MM", label)
	}
	if start, err = ParseClock(strings.TrimSpace(from)); err != nil {
		return 0, 0, apperr.Validation("time slot %q must be HH:MM-HH:MM", label)
	}
	if end, err = ParseClock(strings.TrimSpace(to)); err != nil {
		return 0, 0, apperr.Validation("time slot %q must be HH:MM-HH:MM", label)
	}
	if end <= start {
		return 0, 0, apperr.Validation("time slot %q ends before it starts", label)
	}
	return start, end, nil
}

// CanonicalSlot returns label in the form FormatSlot produces.
func CanonicalSlot(label string) (string, error) {
	start, end, err := ParseSlot(label)
	if err != nil {
		return "", err
	}
	return FormatSlot(start, end), nil
}

// SlotKey is the case-insensitive comparison key of a slot label.
func SlotKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

package model

import (
	"strings"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
)

// DateLayout is the wire and storage form of calendar days.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar day. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

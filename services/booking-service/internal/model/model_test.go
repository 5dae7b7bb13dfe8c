package model

import (
	"errors"
	"testing"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
)

func TestParseClock(t *testing.T) {
	valid := map[string]Clock{"00:00": 0, "09:30": 570, "23:59": 1439, "24:00": EndOfDay}
	for in, want := range valid {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q): expected %d, got %d (%v)", in, want, got, err)
		}
		if got.String() != in {
			t.Fatalf("expected %q to round trip, got %q", in, got.String())
		}
	}
	for _, in := range []string{"", "9:30", "09:60", "24:01", "25:00", "0930", "ab:cd", "09:3O"} {
		if _, err := ParseClock(in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("ParseClock(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestCanonicalSlot(t *testing.T) {
	got, err := CanonicalSlot(" 09:30 - 10:00 ")
	if err != nil || got != "09:30-10:00" {
		t.Fatalf("expected canonical label, got %q (%v)", got, err)
	}
	for _, in := range []string{"09:30", "10:00-09:30", "09:30-09:30", "9:30-10:00", "x-y"} {
		if _, err := CanonicalSlot(in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("CanonicalSlot(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-01")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if !d.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) || FormatDate(d) != "2026-03-01" {
		t.Fatalf("unexpected date %v", d)
	}
	for _, in := range []string{"2026-3-1", "01/03/2026", "2026-02-30", ""} {
		if _, err := ParseDate(in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("ParseDate(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	got := Day(time.Date(2026, 3, 2, 2, 0, 0, 0, loc))
	if FormatDate(got) != "2026-03-01" {
		t.Fatalf("expected UTC calendar day, got %s", FormatDate(got))
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		ok       bool
	}{
		{StatusPending, StatusBooked, true},
		{StatusPending, StatusCancelled, true},
		{StatusBooked, StatusCancelled, true},
		{StatusBooked, StatusPending, false},
		{StatusBooked, StatusBooked, false},
		{StatusCancelled, StatusBooked, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestIsBlocking(t *testing.T) {
	if !StatusPending.IsBlocking() || !StatusBooked.IsBlocking() || !StatusCompleted.IsBlocking() {
		t.Fatal("expected pending, booked and completed to block")
	}
	if StatusCancelled.IsBlocking() {
		t.Fatal("cancelled must not block")
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("booked"); err != nil || s != StatusBooked {
		t.Fatalf("expected Booked, got %q (%v)", s, err)
	}
	if _, err := ParseStatus("Completed"); err == nil {
		t.Fatal("expected Completed to be rejected")
	}
}

func TestRoundRating(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{4.0, 4.0},
		{11.0 / 3, 3.7},
		{4.25, 4.2},
		{3.75, 3.8},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundRating(tc.in); got != tc.want {
			t.Fatalf("RoundRating(%v): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestDoctorValidate(t *testing.T) {
	d := Doctor{ID: "d1", Name: "Dr. Rao", StartTime: 9 * 60, EndTime: 11 * 60}
	d.Normalize()
	if err := d.Validate(); err != nil {
		t.Fatalf("expected valid doctor, got %v", err)
	}
	if d.SlotDurationMinutes != DefaultSlotDurationMinutes || d.ProfileImagePath != DefaultProfileImagePath {
		t.Fatalf("expected defaults, got %+v", d)
	}

	bad := d
	bad.EndTime = bad.StartTime
	if err := bad.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for empty hours, got %v", err)
	}
	bad = d
	bad.SlotDurationMinutes = 481
	if err := bad.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for duration, got %v", err)
	}
}

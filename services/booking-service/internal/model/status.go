package model

import (
	"strings"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusBooked    AppointmentStatus = "Booked"
	StatusCancelled AppointmentStatus = "Cancelled"
	// StatusCompleted is reserved. No transition produces it, but it still
	// occupies its slot.
	StatusCompleted AppointmentStatus = "Completed"
)

// BlockingStatuses are the statuses stored rows can have that occupy a slot.
var BlockingStatuses = []AppointmentStatus{StatusPending, StatusBooked}

// ParseStatus accepts a status name in any letter case. Completed is not
// accepted from callers.
func ParseStatus(s string) (AppointmentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "booked":
		return StatusBooked, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	}
	return "", apperr.Validation("unknown status %q", s)
}

// IsBlocking reports whether an appointment in s occupies its slot.
func (s AppointmentStatus) IsBlocking() bool {
	switch s {
	case StatusPending, StatusBooked, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows s -> to.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusBooked || to == StatusCancelled
	case StatusBooked:
		return to == StatusCancelled
	}
	return false
}

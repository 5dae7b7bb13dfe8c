package model

import (
	"strings"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
)

const (
	MinSlotDurationMinutes     = 5
	MaxSlotDurationMinutes     = 480
	DefaultSlotDurationMinutes = 30
	DefaultProfileImagePath    = "default.png"
)

type Doctor struct {
	ID                  string
	Name                string
	City                string
	Specialization      string
	ProfileImagePath    string
	StartTime           Clock
	EndTime             Clock
	SlotDurationMinutes int
	Rating              float64
}

// Validate checks the directory invariants on working hours and slot length.
func (d Doctor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return apperr.Validation("doctor id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return apperr.Validation("doctor name is required")
	}
	if !d.StartTime.Valid() || !d.EndTime.Valid() {
		return apperr.Validation("working hours must be within 00:00-24:00")
	}
	if d.StartTime >= d.EndTime {
		return apperr.Validation("working hours start %s must be before end %s", d.StartTime, d.EndTime)
	}
	if d.SlotDurationMinutes < MinSlotDurationMinutes || d.SlotDurationMinutes > MaxSlotDurationMinutes {
		return apperr.Validation("slot duration must be between %d and %d minutes", MinSlotDurationMinutes, MaxSlotDurationMinutes)
	}
	return nil
}

// Normalize trims text fields and fills defaults for unset optional fields.
func (d *Doctor) Normalize() {
	d.ID = strings.TrimSpace(d.ID)
	d.Name = strings.TrimSpace(d.Name)
	d.City = strings.TrimSpace(d.City)
	d.Specialization = strings.TrimSpace(d.Specialization)
	d.ProfileImagePath = strings.TrimSpace(d.ProfileImagePath)
	if d.ProfileImagePath == "" {
		d.ProfileImagePath = DefaultProfileImagePath
	}
	if d.SlotDurationMinutes == 0 {
		d.SlotDurationMinutes = DefaultSlotDurationMinutes
	}
}

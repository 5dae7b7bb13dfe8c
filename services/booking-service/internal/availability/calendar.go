// Package availability turns a doctor's working hours into bookable slots and
// filters out the ones held by blocking appointments.
package availability

import (
	"fmt"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
)

// ErrInvalidSchedule reports working hours that cannot produce slots.
var ErrInvalidSchedule = fmt.Errorf("%w: invalid schedule", apperr.ErrValidation)

// Slots returns the labels of consecutive slots of durationMinutes starting at
// start. A slot that would run past end is dropped, so the span never exceeds
// the working window.
func Slots(start, end model.Clock, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration %d must be positive", ErrInvalidSchedule, durationMinutes)
	}
	if !start.Valid() || !end.Valid() || start >= end {
		return nil, fmt.Errorf("%w: working hours %s-%s", ErrInvalidSchedule, start, end)
	}

	step := model.Clock(durationMinutes)
	slots := make([]string, 0, int(end-start)/durationMinutes)
	for t := start; t+step <= end; t += step {
		slots = append(slots, model.FormatSlot(t, t+step))
	}
	return slots, nil
}

// DoctorSlots is Slots over d's working hours.
func DoctorSlots(d model.Doctor) ([]string, error) {
	return Slots(d.StartTime, d.EndTime, d.SlotDurationMinutes)
}

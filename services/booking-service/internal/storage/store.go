// Package storage defines the persistence contract shared by the postgres and
// sqlite backends.
//
// Implementations translate driver errors at this boundary: missing rows
// become apperr.ErrNotFound, a violated blocking-slot index becomes
// apperr.ErrSlotConflict, a duplicate rating becomes apperr.ErrAlreadyRated and
// every other failure is an apperr.ErrInfrastructure.
package storage

import (
	"context"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
)

type DoctorFilter struct {
	City           string
	Specialization string
	MinRating      float64
}

// AppointmentFilter narrows ListAppointments. Zero fields are ignored; date
// bounds are inclusive.
type AppointmentFilter struct {
	DoctorID string
	UserID   string
	Date     *time.Time
	Status   model.AppointmentStatus
	City     string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Transition decides the next status of a row that is locked for update. An
// error aborts the update and is returned to the caller unchanged.
type Transition func(current model.Appointment) (model.AppointmentStatus, error)

type Doctors interface {
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	ListDoctors(ctx context.Context, f DoctorFilter) ([]model.Doctor, error)
	// UpsertDoctor writes directory fields. The aggregate rating is never
	// overwritten.
	UpsertDoctor(ctx context.Context, d model.Doctor) error
}

type Appointments interface {
	// InsertAppointment fails with apperr.ErrSlotConflict when another blocking
	// appointment holds the same doctor, date and slot.
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)
	HasBlockingAppointment(ctx context.Context, doctorID string, date time.Time, slot string) (bool, error)
	UpdateAppointmentStatus(ctx context.Context, id string, fn Transition) (model.Appointment, error)
}

type Ratings interface {
	HasRating(ctx context.Context, appointmentID string) (bool, error)
	// RecordRating inserts r and recomputes the doctor's average in one
	// transaction serialized per doctor. It returns the stored average.
	RecordRating(ctx context.Context, r *model.Rating) (float64, error)
	ListRatings(ctx context.Context, doctorID string) ([]model.Rating, error)
	AverageRating(ctx context.Context, doctorID string) (avg float64, count int, err error)
}

// Inbox applies directory events at most once per event id.
type Inbox interface {
	// ApplyDoctorEvent records eventID and upserts d in one transaction. It
	// returns false, writing nothing, when eventID was already applied.
	ApplyDoctorEvent(ctx context.Context, eventID, eventType string, d model.Doctor) (bool, error)
}

type Store interface {
	Doctors
	Appointments
	Ratings
	Inbox
	Ping(ctx context.Context) error
	Close() error
}

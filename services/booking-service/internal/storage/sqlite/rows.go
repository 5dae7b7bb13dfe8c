package sqlite

import (
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
)

type doctorRow struct {
	ID                  string `gorm:"primaryKey"`
	Name                string
	City                string
	Specialization      string
	ProfileImagePath    string
	StartMinute         int
	EndMinute           int
	SlotDurationMinutes int
	Rating              float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (doctorRow) TableName() string { return "doctors" }

func (r doctorRow) toModel() model.Doctor {
	return model.Doctor{
		ID:                  r.ID,
		Name:                r.Name,
		City:                r.City,
		Specialization:      r.Specialization,
		ProfileImagePath:    r.ProfileImagePath,
		StartTime:           model.Clock(r.StartMinute),
		EndTime:             model.Clock(r.EndMinute),
		SlotDurationMinutes: r.SlotDurationMinutes,
		Rating:              r.Rating,
	}
}

type appointmentRow struct {
	ID              string `gorm:"primaryKey"`
	DoctorID        string
	UserID          string
	AppointmentDate string
	TimeSlot        string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (appointmentRow) TableName() string { return "appointments" }

func (r appointmentRow) toModel() model.Appointment {
	// Dates are written by this package in DateLayout only.
	date, _ := time.Parse(model.DateLayout, r.AppointmentDate)
	return model.Appointment{
		ID:        r.ID,
		DoctorID:  r.DoctorID,
		UserID:    r.UserID,
		Date:      date,
		TimeSlot:  r.TimeSlot,
		Status:    model.AppointmentStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type ratingRow struct {
	ID            string `gorm:"primaryKey"`
	AppointmentID string
	DoctorID      string
	UserID        string
	Score         int
	Comment       string
	CreatedAt     time.Time
}

func (ratingRow) TableName() string { return "ratings" }

func (r ratingRow) toModel() model.Rating {
	return model.Rating{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		DoctorID:      r.DoctorID,
		UserID:        r.UserID,
		Score:         r.Score,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type inboxRow struct {
	EventID    string `gorm:"primaryKey"`
	EventType  string
	ReceivedAt time.Time
}

func (inboxRow) TableName() string { return "inbox_events" }

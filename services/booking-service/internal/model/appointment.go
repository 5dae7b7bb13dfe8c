package model

import "time"

type Appointment struct {
	ID        string
	DoctorID  string
	UserID    string
	Date      time.Time
	TimeSlot  string
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

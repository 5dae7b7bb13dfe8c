package handlers

import (
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
)

type doctorResponse struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	City                string      `json:"city"`
	Specialization      string      `json:"specialization"`
	ProfileImagePath    string      `json:"profileImagePath"`
	StartTime           model.Clock `json:"startTime"`
	EndTime             model.Clock `json:"endTime"`
	SlotDurationMinutes int         `json:"slotDurationMinutes"`
	Rating              float64     `json:"rating"`
}

func toDoctorResponse(d model.Doctor) doctorResponse {
	return doctorResponse{
		ID:                  d.ID,
		Name:                d.Name,
		City:                d.City,
		Specialization:      d.Specialization,
		ProfileImagePath:    d.ProfileImagePath,
		StartTime:           d.StartTime,
		EndTime:             d.EndTime,
		SlotDurationMinutes: d.SlotDurationMinutes,
		Rating:              d.Rating,
	}
}

func toDoctorResponses(ds []model.Doctor) []doctorResponse {
	out := make([]doctorResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDoctorResponse(d))
	}
	return out
}

type appointmentResponse struct {
	ID              string `json:"id"`
	DoctorID        string `json:"doctorId"`
	UserID          string `json:"userId"`
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
	Status          string `json:"status"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		UserID:          a.UserID,
		AppointmentDate: model.FormatDate(a.Date),
		TimeSlot:        a.TimeSlot,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !a.UpdatedAt.IsZero() {
		resp.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toAppointmentResponses(as []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(as))
	for _, a := range as {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

type ratingResponse struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointmentId"`
	DoctorID      string `json:"doctorId"`
	UserID        string `json:"userId"`
	Score         int    `json:"score"`
	Comment       string `json:"comment,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func toRatingResponses(rs []model.Rating) []ratingResponse {
	out := make([]ratingResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ratingResponse{
			ID:            r.ID,
			AppointmentID: r.AppointmentID,
			DoctorID:      r.DoctorID,
			UserID:        r.UserID,
			Score:         r.Score,
			Comment:       r.Comment,
			CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

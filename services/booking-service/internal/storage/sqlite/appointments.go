package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"gorm.io/gorm"
)

func blockingStatusNames() []string {
	names := make([]string, 0, len(model.BlockingStatuses))
	for _, s := range model.BlockingStatuses {
		names = append(names, string(s))
	}
	return names
}

func (s *Store) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	row := appointmentRow{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		UserID:          a.UserID,
		AppointmentDate: model.FormatDate(a.Date),
		TimeSlot:        a.TimeSlot,
		Status:          string(a.Status),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("insert appointment", err, apperr.ErrSlotConflict)
	}
	a.CreatedAt, a.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	return getAppointment(s.db.WithContext(ctx), id)
}

func getAppointment(tx *gorm.DB, id string) (model.Appointment, error) {
	var row appointmentRow
	err := tx.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Appointment{}, apperr.NotFound("appointment", id)
	}
	if err != nil {
		return model.Appointment{}, translate("get appointment", err, nil)
	}
	return row.toModel(), nil
}

func (s *Store) HasBlockingAppointment(ctx context.Context, doctorID string, date time.Time, slot string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&appointmentRow{}).
		Where("doctor_id = ? AND appointment_date = ? AND lower(time_slot) = lower(?)", doctorID, model.FormatDate(date), slot).
		Where("status IN ?", blockingStatusNames()).
		Count(&n).Error
	if err != nil {
		return false, translate("check blocking appointment", err, nil)
	}
	return n > 0, nil
}

func (s *Store) ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error) {
	q := s.db.WithContext(ctx).Model(&appointmentRow{}).Select("appointments.*")
	if f.DoctorID != "" {
		q = q.Where("appointments.doctor_id = ?", f.DoctorID)
	}
	if f.UserID != "" {
		q = q.Where("appointments.user_id = ?", f.UserID)
	}
	if f.Date != nil {
		q = q.Where("appointments.appointment_date = ?", model.FormatDate(*f.Date))
	}
	if f.Status != "" {
		q = q.Where("appointments.status = ?", string(f.Status))
	}
	if f.DateFrom != nil {
		q = q.Where("appointments.appointment_date >= ?", model.FormatDate(*f.DateFrom))
	}
	if f.DateTo != nil {
		q = q.Where("appointments.appointment_date <= ?", model.FormatDate(*f.DateTo))
	}
	if c := strings.TrimSpace(f.City); c != "" {
		q = q.Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
			Where("lower(doctors.city) = lower(?)", c)
	}

	var rows []appointmentRow
	err := q.Order("appointments.appointment_date DESC, appointments.time_slot ASC, appointments.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list appointments", err, nil)
	}
	appts := make([]model.Appointment, 0, len(rows))
	for _, r := range rows {
		appts = append(appts, r.toModel())
	}
	return appts, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, fn storage.Transition) (model.Appointment, error) {
	var out model.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := getAppointment(tx, id)
		if err != nil {
			return err
		}
		next, err := fn(a)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		err = tx.Model(&appointmentRow{}).Where("id = ?", id).
			Updates(map[string]any{"status": string(next), "updated_at": now}).Error
		if err != nil {
			return translate("update appointment status", err, apperr.ErrSlotConflict)
		}
		a.Status, a.UpdatedAt = next, now
		out = a
		return nil
	})
	if err != nil {
		return model.Appointment{}, translate("status update", err, nil)
	}
	return out, nil
}

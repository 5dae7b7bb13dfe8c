package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

const selectAppointmentSQL = `
	SELECT a.id, a.doctor_id, a.user_id, a.appointment_date, a.time_slot, a.status, a.created_at, a.updated_at
	FROM appointments a`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.UserID,
		&a.Date,
		&a.TimeSlot,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	a.Status = model.AppointmentStatus(status)
	a.Date = model.Day(a.Date)
	return a, err
}

func (s *Store) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, user_id, appointment_date, time_slot, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, a.ID, a.DoctorID, a.UserID, a.Date, a.TimeSlot, string(a.Status)).Scan(&a.CreatedAt, &a.UpdatedAt)
	return translate("insert appointment", err)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, selectAppointmentSQL+` WHERE a.id = $1`, id))
	if isNoRows(err) {
		return model.Appointment{}, apperr.NotFound("appointment", id)
	}
	if err != nil {
		return model.Appointment{}, translate("get appointment", err)
	}
	return a, nil
}

func (s *Store) HasBlockingAppointment(ctx context.Context, doctorID string, date time.Time, slot string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
				AND appointment_date = $2
				AND lower(time_slot) = lower($3)
				AND status IN ('Pending', 'Booked')
		)
	`, doctorID, date, slot).Scan(&exists)
	if err != nil {
		return false, translate("check blocking appointment", err)
	}
	return exists, nil
}

func (s *Store) ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	join := ""
	if f.DoctorID != "" {
		add("a.doctor_id = $%d", f.DoctorID)
	}
	if f.UserID != "" {
		add("a.user_id = $%d", f.UserID)
	}
	if f.Date != nil {
		add("a.appointment_date = $%d", *f.Date)
	}
	if f.Status != "" {
		add("a.status = $%d", string(f.Status))
	}
	if f.DateFrom != nil {
		add("a.appointment_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("a.appointment_date <= $%d", *f.DateTo)
	}
	if c := strings.TrimSpace(f.City); c != "" {
		join = " JOIN doctors d ON d.id = a.doctor_id"
		add("lower(d.city) = lower($%d)", c)
	}

	query := selectAppointmentSQL + join
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.appointment_date DESC, a.time_slot ASC, a.created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list appointments", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, translate("scan appointment", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list appointments", err)
	}
	return appts, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, fn storage.Transition) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, translate("begin status update", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a, err := scanAppointment(tx.QueryRow(ctx, selectAppointmentSQL+` WHERE a.id = $1 FOR UPDATE`, id))
	if isNoRows(err) {
		return model.Appointment{}, apperr.NotFound("appointment", id)
	}
	if err != nil {
		return model.Appointment{}, translate("lock appointment", err)
	}

	next, err := fn(a)
	if err != nil {
		return model.Appointment{}, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, string(next)).Scan(&a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, translate("update appointment status", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, translate("commit status update", err)
	}
	a.Status = next
	return a, nil
}

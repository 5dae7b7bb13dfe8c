package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const selectDoctorSQL = `
	SELECT id, name, city, specialization, profile_image_path,
		start_minute, end_minute, slot_duration_minutes, rating::float8
	FROM doctors`

func scanDoctor(row pgx.Row) (model.Doctor, error) {
	var d model.Doctor
	var start, end int
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.City,
		&d.Specialization,
		&d.ProfileImagePath,
		&start,
		&end,
		&d.SlotDurationMinutes,
		&d.Rating,
	)
	d.StartTime, d.EndTime = model.Clock(start), model.Clock(end)
	return d, err
}

func (s *Store) GetDoctor(ctx context.Context, id string) (model.Doctor, error) {
	d, err := scanDoctor(s.pool.QueryRow(ctx, selectDoctorSQL+` WHERE id = $1`, id))
	if isNoRows(err) {
		return model.Doctor{}, apperr.NotFound("doctor", id)
	}
	if err != nil {
		return model.Doctor{}, translate("get doctor", err)
	}
	return d, nil
}

func (s *Store) ListDoctors(ctx context.Context, f storage.DoctorFilter) ([]model.Doctor, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if c := strings.TrimSpace(f.City); c != "" {
		add("lower(city) = lower($%d)", c)
	}
	if sp := strings.TrimSpace(f.Specialization); sp != "" {
		add("lower(specialization) = lower($%d)", sp)
	}
	if f.MinRating > 0 {
		add("rating >= $%d", f.MinRating)
	}

	query := selectDoctorSQL
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list doctors", err)
	}
	defer rows.Close()

	var doctors []model.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, translate("scan doctor", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list doctors", err)
	}
	return doctors, nil
}

// execer is satisfied by the pool and by pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) UpsertDoctor(ctx context.Context, d model.Doctor) error {
	return upsertDoctor(ctx, s.pool, d)
}

func upsertDoctor(ctx context.Context, q execer, d model.Doctor) error {
	_, err := q.Exec(ctx, `
		INSERT INTO doctors
			(id, name, city, specialization, profile_image_path, start_minute, end_minute, slot_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			specialization = EXCLUDED.specialization,
			profile_image_path = EXCLUDED.profile_image_path,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			updated_at = now()
	`, d.ID, d.Name, d.City, d.Specialization, d.ProfileImagePath,
		int(d.StartTime), int(d.EndTime), d.SlotDurationMinutes)
	return translate("upsert doctor", err)
}

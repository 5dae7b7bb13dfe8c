package postgres

import (
	"context"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
)

func (s *Store) HasRating(ctx context.Context, appointmentID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE appointment_id = $1)`, appointmentID).Scan(&exists)
	if err != nil {
		return false, translate("check rating", err)
	}
	return exists, nil
}

// RecordRating locks the doctor row so concurrent raters of the same doctor
// recompute the average one after another.
func (s *Store) RecordRating(ctx context.Context, r *model.Rating) (float64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, translate("begin rating", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM doctors WHERE id = $1 FOR UPDATE`, r.DoctorID).Scan(&locked)
	if isNoRows(err) {
		return 0, apperr.NotFound("doctor", r.DoctorID)
	}
	if err != nil {
		return 0, translate("lock doctor", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO ratings (id, appointment_id, doctor_id, user_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, r.ID, r.AppointmentID, r.DoctorID, r.UserID, r.Score, r.Comment).Scan(&r.CreatedAt)
	if err != nil {
		return 0, translate("insert rating", err)
	}

	var avg float64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(AVG(score), 0)::float8 FROM ratings WHERE doctor_id = $1`, r.DoctorID).Scan(&avg); err != nil {
		return 0, translate("aggregate ratings", err)
	}
	avg = model.RoundRating(avg)

	if _, err := tx.Exec(ctx, `UPDATE doctors SET rating = $2, updated_at = now() WHERE id = $1`, r.DoctorID, avg); err != nil {
		return 0, translate("update doctor rating", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, translate("commit rating", err)
	}
	return avg, nil
}

func (s *Store) ListRatings(ctx context.Context, doctorID string) ([]model.Rating, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, appointment_id, doctor_id, user_id, score, comment, created_at
		FROM ratings
		WHERE doctor_id = $1
		ORDER BY created_at DESC, id ASC
	`, doctorID)
	if err != nil {
		return nil, translate("list ratings", err)
	}
	defer rows.Close()

	var ratings []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ID, &r.AppointmentID, &r.DoctorID, &r.UserID, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, translate("scan rating", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list ratings", err)
	}
	return ratings, nil
}

func (s *Store) AverageRating(ctx context.Context, doctorID string) (float64, int, error) {
	var avg float64
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(score), 0)::float8, COUNT(*)
		FROM ratings
		WHERE doctor_id = $1
	`, doctorID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, translate("average rating", err)
	}
	return model.RoundRating(avg), count, nil
}

package sqlite

import (
	"context"
	"errors"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"gorm.io/gorm"
)

func (s *Store) HasRating(ctx context.Context, appointmentID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ratingRow{}).Where("appointment_id = ?", appointmentID).Count(&n).Error
	if err != nil {
		return false, translate("check rating", err, nil)
	}
	return n > 0, nil
}

func (s *Store) RecordRating(ctx context.Context, r *model.Rating) (float64, error) {
	var avg float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc doctorRow
		err := tx.Select("id").First(&doc, "id = ?", r.DoctorID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("doctor", r.DoctorID)
		}
		if err != nil {
			return translate("load doctor", err, nil)
		}

		row := ratingRow{
			ID:            r.ID,
			AppointmentID: r.AppointmentID,
			DoctorID:      r.DoctorID,
			UserID:        r.UserID,
			Score:         r.Score,
			Comment:       r.Comment,
		}
		if err := tx.Create(&row).Error; err != nil {
			return translate("insert rating", err, apperr.ErrAlreadyRated)
		}
		r.CreatedAt = row.CreatedAt

		var raw float64
		var count int64
		if err := tx.Raw(`SELECT COALESCE(AVG(score), 0), COUNT(*) FROM ratings WHERE doctor_id = ?`, r.DoctorID).
			Row().Scan(&raw, &count); err != nil {
			return translate("aggregate ratings", err, nil)
		}
		avg = model.RoundRating(raw)

		err = tx.Model(&doctorRow{}).Where("id = ?", r.DoctorID).
			Updates(map[string]any{"rating": avg, "updated_at": tx.NowFunc()}).Error
		return translate("update doctor rating", err, nil)
	})
	if err != nil {
		return 0, translate("record rating", err, nil)
	}
	return avg, nil
}

func (s *Store) ListRatings(ctx context.Context, doctorID string) ([]model.Rating, error) {
	var rows []ratingRow
	err := s.db.WithContext(ctx).Where("doctor_id = ?", doctorID).Order("created_at DESC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, translate("list ratings", err, nil)
	}
	ratings := make([]model.Rating, 0, len(rows))
	for _, r := range rows {
		ratings = append(ratings, r.toModel())
	}
	return ratings, nil
}

func (s *Store) AverageRating(ctx context.Context, doctorID string) (float64, int, error) {
	var avg float64
	var count int
	err := s.db.WithContext(ctx).
		Raw(`SELECT COALESCE(AVG(score), 0), COUNT(*) FROM ratings WHERE doctor_id = ?`, doctorID).
		Row().Scan(&avg, &count)
	if err != nil {
		return 0, 0, translate("average rating", err, nil)
	}
	return model.RoundRating(avg), count, nil
}

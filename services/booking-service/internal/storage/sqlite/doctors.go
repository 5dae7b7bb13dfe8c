package sqlite

import (
	"context"
	"errors"
	"strings"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) GetDoctor(ctx context.Context, id string) (model.Doctor, error) {
	var row doctorRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Doctor{}, apperr.NotFound("doctor", id)
	}
	if err != nil {
		return model.Doctor{}, translate("get doctor", err, nil)
	}
	return row.toModel(), nil
}

func (s *Store) ListDoctors(ctx context.Context, f storage.DoctorFilter) ([]model.Doctor, error) {
	q := s.db.WithContext(ctx).Model(&doctorRow{})
	if c := strings.TrimSpace(f.City); c != "" {
		q = q.Where("lower(city) = lower(?)", c)
	}
	if sp := strings.TrimSpace(f.Specialization); sp != "" {
		q = q.Where("lower(specialization) = lower(?)", sp)
	}
	if f.MinRating > 0 {
		q = q.Where("rating >= ?", f.MinRating)
	}

	var rows []doctorRow
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate("list doctors", err, nil)
	}
	doctors := make([]model.Doctor, 0, len(rows))
	for _, r := range rows {
		doctors = append(doctors, r.toModel())
	}
	return doctors, nil
}

func (s *Store) UpsertDoctor(ctx context.Context, d model.Doctor) error {
	return upsertDoctor(s.db.WithContext(ctx), d)
}

func upsertDoctor(db *gorm.DB, d model.Doctor) error {
	row := doctorRow{
		ID:                  d.ID,
		Name:                d.Name,
		City:                d.City,
		Specialization:      d.Specialization,
		ProfileImagePath:    d.ProfileImagePath,
		StartMinute:         int(d.StartTime),
		EndMinute:           int(d.EndTime),
		SlotDurationMinutes: d.SlotDurationMinutes,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "city", "specialization", "profile_image_path",
			"start_minute", "end_minute", "slot_duration_minutes", "updated_at",
		}),
	}).Create(&row).Error
	return translate("upsert doctor", err, nil)
}

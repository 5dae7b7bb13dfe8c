package sqlite

import (
	"context"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyDoctorEvent claims eventID in the inbox and upserts d in the same
// transaction. A failed upsert rolls the claim back, so a redelivery retries.
func (s *Store) ApplyDoctorEvent(ctx context.Context, eventID, eventType string, d model.Doctor) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := inboxRow{EventID: eventID, EventType: eventType, ReceivedAt: s.db.NowFunc()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return translate("record inbox event", res.Error, nil)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := upsertDoctor(tx, d); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

package postgres

import (
	"context"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
)

// ApplyDoctorEvent claims eventID in the inbox and upserts d in the same
// transaction. A failed upsert rolls the claim back, so a redelivery retries.
func (s *Store) ApplyDoctorEvent(ctx context.Context, eventID, eventType string, d model.Doctor) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, translate("begin directory event", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, translate("record inbox event", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := upsertDoctor(ctx, tx, d); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, translate("commit directory event", err)
	}
	return true, nil
}

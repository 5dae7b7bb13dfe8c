// Package directory keeps the local doctor table in sync with the doctor
// directory's change events.
package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fracto-health/fracto/libs/kafkax"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
)

const (
	TopicDoctorUpserted     = "directory.doctor.upserted.v1"
	EventTypeDoctorUpserted = "directory.doctor.upserted"
)

var validate = validator.New()

// DoctorUpserted is the payload of TopicDoctorUpserted.
type DoctorUpserted struct {
	ID                  string      `json:"id" validate:"required,max=64"`
	Name                string      `json:"name" validate:"required,max=200"`
	City                string      `json:"city" validate:"max=100"`
	Specialization      string      `json:"specialization" validate:"max=100"`
	ProfileImagePath    string      `json:"profileImagePath" validate:"max=500"`
	StartTime           model.Clock `json:"startTime"`
	EndTime             model.Clock `json:"endTime"`
	SlotDurationMinutes int         `json:"slotDurationMinutes" validate:"omitempty,min=5,max=480"`
}

// Doctor returns the directory record carried by e, normalized and checked.
func (e DoctorUpserted) Doctor() (model.Doctor, error) {
	if err := validate.Struct(e); err != nil {
		return model.Doctor{}, apperr.Validation("doctor event: %v", err)
	}
	d := model.Doctor{
		ID:                  e.ID,
		Name:                e.Name,
		City:                e.City,
		Specialization:      e.Specialization,
		ProfileImagePath:    e.ProfileImagePath,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		SlotDurationMinutes: e.SlotDurationMinutes,
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return model.Doctor{}, err
	}
	return d, nil
}

// FromDoctor builds the event announcing d.
func FromDoctor(d model.Doctor) DoctorUpserted {
	return DoctorUpserted{
		ID:                  d.ID,
		Name:                d.Name,
		City:                d.City,
		Specialization:      d.Specialization,
		ProfileImagePath:    d.ProfileImagePath,
		StartTime:           d.StartTime,
		EndTime:             d.EndTime,
		SlotDurationMinutes: d.SlotDurationMinutes,
	}
}

func DecodeDoctorUpserted(value []byte) (DoctorUpserted, error) {
	var e DoctorUpserted
	if err := json.Unmarshal(value, &e); err != nil {
		return DoctorUpserted{}, apperr.Validation("decode doctor event: %v", err)
	}
	return e, nil
}

// Inbox applies a doctor event at most once per event id.
type Inbox interface {
	ApplyDoctorEvent(ctx context.Context, eventID, eventType string, d model.Doctor) (bool, error)
}

// UpsertHandler applies doctor events to store.
func UpsertHandler(store Inbox) Handler {
	return func(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) (bool, error) {
		e, err := DecodeDoctorUpserted(msg.Value)
		if err != nil {
			return false, err
		}
		d, err := e.Doctor()
		if err != nil {
			return false, err
		}
		applied, err := store.ApplyDoctorEvent(ctx, meta.EventID, meta.EventType, d)
		if err != nil {
			return false, fmt.Errorf("upsert doctor %q: %w", d.ID, err)
		}
		return applied, nil
	}
}

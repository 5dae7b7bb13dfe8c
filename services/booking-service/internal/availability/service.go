package availability

import (
	"context"
	"errors"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"go.uber.org/zap"
)

// Store is the slice of storage the availability queries read.
type Store interface {
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	ListDoctors(ctx context.Context, f storage.DoctorFilter) ([]model.Doctor, error)
	ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error)
}

type Service struct {
	store  Store
	cache  Cache
	logger *zap.Logger
}

func NewService(store Store, cache Cache, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// FreeSlots lists the bookable slots of doctorID on date.
func (s *Service) FreeSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	d, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.freeSlots(ctx, d, model.Day(date))
}

func (s *Service) freeSlots(ctx context.Context, d model.Doctor, day time.Time) ([]string, error) {
	candidates, err := DoctorSlots(d)
	if err != nil {
		return nil, err
	}
	taken, err := s.taken(ctx, d.ID, day)
	if err != nil {
		return nil, err
	}
	return FreeFromTaken(candidates, taken), nil
}

func (s *Service) taken(ctx context.Context, doctorID string, day time.Time) ([]string, error) {
	gen, err := s.cache.Generation(ctx, doctorID, day)
	if err != nil {
		s.logger.Warn("availability cache generation read failed", zap.String("doctor_id", doctorID), zap.Error(err))
		return s.loadTaken(ctx, doctorID, day)
	}
	if taken, ok, err := s.cache.GetTaken(ctx, doctorID, day, gen); err != nil {
		s.logger.Warn("availability cache read failed", zap.String("doctor_id", doctorID), zap.Error(err))
	} else if ok {
		return taken, nil
	}

	taken, err := s.loadTaken(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	// gen was read before the store query; a concurrent Invalidate moves
	// readers past this entry.
	if err := s.cache.SetTaken(ctx, doctorID, day, gen, taken); err != nil {
		s.logger.Warn("availability cache write failed", zap.String("doctor_id", doctorID), zap.Error(err))
	}
	return taken, nil
}

func (s *Service) loadTaken(ctx context.Context, doctorID string, day time.Time) ([]string, error) {
	appts, err := s.store.ListAppointments(ctx, storage.AppointmentFilter{DoctorID: doctorID, Date: &day})
	if err != nil {
		return nil, err
	}
	return Taken(appts), nil
}

// Invalidate drops the cached view of (doctorID, date). Failures are logged.
func (s *Service) Invalidate(ctx context.Context, doctorID string, date time.Time) {
	if err := s.cache.Invalidate(ctx, doctorID, model.Day(date)); err != nil {
		s.logger.Warn("availability cache invalidate failed",
			zap.String("doctor_id", doctorID),
			zap.String("date", model.FormatDate(date)),
			zap.Error(err),
		)
	}
}

// AvailableDoctors returns the doctors matching f that have at least one free
// slot on date. Doctors whose hours produce no slots are left out.
func (s *Service) AvailableDoctors(ctx context.Context, f storage.DoctorFilter, date time.Time) ([]model.Doctor, error) {
	doctors, err := s.store.ListDoctors(ctx, f)
	if err != nil {
		return nil, err
	}
	day := model.Day(date)
	out := make([]model.Doctor, 0, len(doctors))
	for _, d := range doctors {
		free, err := s.freeSlots(ctx, d, day)
		if errors.Is(err, ErrInvalidSchedule) {
			s.logger.Warn("skipping doctor with invalid schedule", zap.String("doctor_id", d.ID), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(free) > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

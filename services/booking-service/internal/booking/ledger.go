// Package booking owns the appointment lifecycle:
//
//	Pending -> Booked -> Cancelled
//	Pending -> Cancelled
//
// Cancelled is terminal. Double booking is prevented by the store's blocking
// slot index; the check done here first only gives a faster answer.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	otelx "github.com/fracto-health/fracto/libs/otel"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/availability"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "booking-service/booking"

type Store interface {
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	storage.Appointments
}

// Invalidator drops cached availability after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, doctorID string, date time.Time)
}

type Ledger struct {
	store       Store
	invalidator Invalidator
	logger      *zap.Logger
	newID       func() string
}

type Option func(*Ledger)

func WithInvalidator(inv Invalidator) Option { return func(l *Ledger) { l.invalidator = inv } }

func WithIDGenerator(fn func() string) Option { return func(l *Ledger) { l.newID = fn } }

func NewLedger(store Store, logger *zap.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{store: store, logger: logger, newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type CreateRequest struct {
	UserID   string
	DoctorID string
	Date     string
	TimeSlot string
}

// Create books timeSlot for the user as a Pending appointment.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (_ model.Appointment, err error) {
	ctx, span := otelx.Start(ctx, tracerName, "booking.create",
		trace.WithAttributes(attribute.String("doctor.id", req.DoctorID)))
	defer func() { otelx.End(span, err) }()

	userID := strings.TrimSpace(req.UserID)
	doctorID := strings.TrimSpace(req.DoctorID)
	if userID == "" || doctorID == "" || strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.TimeSlot) == "" {
		return model.Appointment{}, apperr.Validation("userId, doctorId, appointmentDate and timeSlot are required")
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	slot, err := model.CanonicalSlot(req.TimeSlot)
	if err != nil {
		return model.Appointment{}, err
	}

	d, err := l.store.GetDoctor(ctx, doctorID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := onCalendar(d, slot); err != nil {
		return model.Appointment{}, err
	}

	taken, err := l.store.HasBlockingAppointment(ctx, doctorID, date, slot)
	if err != nil {
		return model.Appointment{}, err
	}
	if taken {
		return model.Appointment{}, fmt.Errorf("%s on %s: %w", slot, model.FormatDate(date), apperr.ErrSlotConflict)
	}

	a := model.Appointment{
		ID:       l.newID(),
		DoctorID: doctorID,
		UserID:   userID,
		Date:     date,
		TimeSlot: slot,
		Status:   model.StatusPending,
	}
	if err := l.store.InsertAppointment(ctx, &a); err != nil {
		return model.Appointment{}, err
	}
	l.invalidate(ctx, a)

	l.logger.Info("appointment created",
		zap.String("appointment_id", a.ID),
		zap.String("doctor_id", a.DoctorID),
		zap.String("date", model.FormatDate(a.Date)),
		zap.String("time_slot", a.TimeSlot),
	)
	return a, nil
}

// Approve moves a Pending appointment to Booked.
func (l *Ledger) Approve(ctx context.Context, id string) (model.Appointment, error) {
	return l.transition(ctx, "booking.approve", id, func(a model.Appointment) (model.AppointmentStatus, error) {
		return next(a, model.StatusBooked)
	})
}

// AdminCancel cancels a Pending or Booked appointment.
func (l *Ledger) AdminCancel(ctx context.Context, id string) (model.Appointment, error) {
	return l.transition(ctx, "booking.admin_cancel", id, func(a model.Appointment) (model.AppointmentStatus, error) {
		return next(a, model.StatusCancelled)
	})
}

// UserCancel cancels the caller's own Pending or Booked appointment.
func (l *Ledger) UserCancel(ctx context.Context, id, callerUserID string) (model.Appointment, error) {
	return l.transition(ctx, "booking.user_cancel", id, func(a model.Appointment) (model.AppointmentStatus, error) {
		if a.UserID != callerUserID {
			return "", fmt.Errorf("appointment %q belongs to another user: %w", a.ID, apperr.ErrForbidden)
		}
		return next(a, model.StatusCancelled)
	})
}

func next(a model.Appointment, to model.AppointmentStatus) (model.AppointmentStatus, error) {
	if !a.Status.CanTransition(to) {
		return "", fmt.Errorf("appointment %q %s -> %s: %w", a.ID, a.Status, to, apperr.ErrInvalidTransition)
	}
	return to, nil
}

func (l *Ledger) transition(ctx context.Context, op, id string, fn storage.Transition) (_ model.Appointment, err error) {
	ctx, span := otelx.Start(ctx, tracerName, op, trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { otelx.End(span, err) }()

	if strings.TrimSpace(id) == "" {
		return model.Appointment{}, apperr.Validation("appointment id is required")
	}
	a, err := l.store.UpdateAppointmentStatus(ctx, id, fn)
	if err != nil {
		return model.Appointment{}, err
	}
	l.invalidate(ctx, a)
	l.logger.Info("appointment status changed",
		zap.String("op", op),
		zap.String("appointment_id", a.ID),
		zap.String("status", string(a.Status)),
	)
	return a, nil
}

func (l *Ledger) invalidate(ctx context.Context, a model.Appointment) {
	if l.invalidator != nil {
		l.invalidator.Invalidate(ctx, a.DoctorID, a.Date)
	}
}

func (l *Ledger) Get(ctx context.Context, id string) (model.Appointment, error) {
	return l.store.GetAppointment(ctx, id)
}

// ListForUser returns userID's appointments, latest date first.
func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("user id is required")
	}
	return l.store.ListAppointments(ctx, storage.AppointmentFilter{UserID: userID})
}

type ListFilter struct {
	Status   model.AppointmentStatus
	City     string
	DateFrom *time.Time
	DateTo   *time.Time
}

// List is the staff view over all appointments.
func (l *Ledger) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, apperr.Validation("dateTo must not be before dateFrom")
	}
	return l.store.ListAppointments(ctx, storage.AppointmentFilter{
		Status:   f.Status,
		City:     f.City,
		DateFrom: f.DateFrom,
		DateTo:   f.DateTo,
	})
}

// onCalendar rejects labels that are not one of d's generated slots. An
// off-grid label would overlap two slots without blocking either.
func onCalendar(d model.Doctor, slot string) error {
	slots, err := availability.DoctorSlots(d)
	if err != nil {
		return err
	}
	key := model.SlotKey(slot)
	for _, s := range slots {
		if model.SlotKey(s) == key {
			return nil
		}
	}
	return apperr.Validation("time slot %s is not on doctor %s's calendar", slot, d.ID)
}

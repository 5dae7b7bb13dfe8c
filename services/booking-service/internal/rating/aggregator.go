// Package rating records patient ratings and keeps each doctor's average.
package rating

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	otelx "github.com/fracto-health/fracto/libs/otel"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Store interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	storage.Ratings
}

type Aggregator struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Aggregator)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

func WithIDGenerator(fn func() string) Option { return func(a *Aggregator) { a.newID = fn } }

func NewAggregator(store Store, logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type RateRequest struct {
	AppointmentID string
	CallerUserID  string
	DoctorID      string
	Score         int
	Comment       string
}

// Rate stores a rating for a visit and returns the doctor's new average.
func (g *Aggregator) Rate(ctx context.Context, req RateRequest) (_ float64, err error) {
	ctx, span := otelx.Start(ctx, "booking-service/rating", "rating.rate",
		trace.WithAttributes(attribute.String("appointment.id", req.AppointmentID)))
	defer func() { otelx.End(span, err) }()

	if strings.TrimSpace(req.AppointmentID) == "" {
		return 0, apperr.Validation("appointmentId is required")
	}
	appt, err := g.store.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return 0, err
	}
	if appt.UserID != req.CallerUserID {
		return 0, fmt.Errorf("appointment %q belongs to another user: %w", appt.ID, apperr.ErrForbidden)
	}
	if appt.DoctorID != strings.TrimSpace(req.DoctorID) {
		return 0, apperr.Validation("doctorId does not match the appointment")
	}
	if req.Score < model.MinScore || req.Score > model.MaxScore {
		return 0, apperr.Validation("score must be between %d and %d", model.MinScore, model.MaxScore)
	}
	if appt.Status == model.StatusCancelled {
		return 0, apperr.Validation("cancelled appointments cannot be rated")
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > model.MaxCommentLength {
		return 0, apperr.Validation("comment must be at most %d characters", model.MaxCommentLength)
	}
	if model.Day(appt.Date).After(model.Day(g.now())) {
		return 0, fmt.Errorf("appointment %q on %s: %w", appt.ID, model.FormatDate(appt.Date), apperr.ErrTooEarly)
	}

	rated, err := g.store.HasRating(ctx, appt.ID)
	if err != nil {
		return 0, err
	}
	if rated {
		return 0, fmt.Errorf("appointment %q: %w", appt.ID, apperr.ErrAlreadyRated)
	}

	r := model.Rating{
		ID:            g.newID(),
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		UserID:        appt.UserID,
		Score:         req.Score,
		Comment:       comment,
	}
	avg, err := g.store.RecordRating(ctx, &r)
	if err != nil {
		return 0, err
	}
	g.logger.Info("rating recorded",
		zap.String("appointment_id", appt.ID),
		zap.String("doctor_id", appt.DoctorID),
		zap.Int("score", r.Score),
		zap.Float64("average", avg),
	)
	return avg, nil
}

// DoctorRatings lists a doctor's ratings, newest first.
func (g *Aggregator) DoctorRatings(ctx context.Context, doctorID string) ([]model.Rating, error) {
	if _, err := g.store.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return g.store.ListRatings(ctx, doctorID)
}

// DoctorAverage is the rounded mean score of doctorID, 0 without ratings.
func (g *Aggregator) DoctorAverage(ctx context.Context, doctorID string) (float64, int, error) {
	if _, err := g.store.GetDoctor(ctx, doctorID); err != nil {
		return 0, 0, err
	}
	return g.store.AverageRating(ctx, doctorID)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fracto-health/fracto/libs/httpx"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/availability"
	"github.com/fracto-health/fracto/services/booking-service/internal/directory"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/rating"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"go.uber.org/zap"
)

type DoctorHandler struct {
	doctors      storage.Doctors
	availability *availability.Service
	ratings      *rating.Aggregator
	logger       *zap.Logger
}

func NewDoctorHandler(doctors storage.Doctors, avail *availability.Service, ratings *rating.Aggregator, logger *zap.Logger) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, availability: avail, ratings: ratings, logger: logger}
}

func doctorFilter(r *http.Request) (storage.DoctorFilter, error) {
	q := r.URL.Query()
	f := storage.DoctorFilter{
		City:           strings.TrimSpace(q.Get("city")),
		Specialization: strings.TrimSpace(q.Get("specialization")),
	}
	if raw := strings.TrimSpace(q.Get("minRating")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > model.MaxScore {
			return storage.DoctorFilter{}, apperr.Validation("minRating must be a number between 0 and %d", model.MaxScore)
		}
		f.MinRating = v
	}
	return f, nil
}

func queryDate(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Time{}, apperr.Validation("date is required")
	}
	return model.ParseDate(raw)
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := doctorFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	doctors, err := h.doctors.ListDoctors(r.Context(), f)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDoctorResponses(doctors))
}

func (h *DoctorHandler) Available(w http.ResponseWriter, r *http.Request) {
	f, err := doctorFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	date, err := queryDate(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	doctors, err := h.availability.AvailableDoctors(r.Context(), f, date)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDoctorResponses(doctors))
}

func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.doctors.GetDoctor(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDoctorResponse(d))
}

func (h *DoctorHandler) Timeslots(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	slots, err := h.availability.FreeSlots(r.Context(), r.PathValue("id"), date)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *DoctorHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.ratings.DoctorRatings(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRatingResponses(ratings))
}

type averageResponse struct {
	DoctorID string  `json:"doctorId"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

func (h *DoctorHandler) Average(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	avg, n, err := h.ratings.DoctorAverage(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, averageResponse{DoctorID: id, Average: avg, Count: n})
}

type upsertDoctorRequest struct {
	Name                string      `json:"name" validate:"required,max=200"`
	City                string      `json:"city" validate:"max=100"`
	Specialization      string      `json:"specialization" validate:"max=100"`
	ProfileImagePath    string      `json:"profileImagePath" validate:"max=500"`
	StartTime           model.Clock `json:"startTime"`
	EndTime             model.Clock `json:"endTime"`
	SlotDurationMinutes int         `json:"slotDurationMinutes"`
}

// Upsert writes a directory record from staff input. The rating is kept.
func (h *DoctorHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertDoctorRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	event := directory.DoctorUpserted{
		ID:                  r.PathValue("id"),
		Name:                req.Name,
		City:                req.City,
		Specialization:      req.Specialization,
		ProfileImagePath:    req.ProfileImagePath,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
	}
	d, err := event.Doctor()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.doctors.UpsertDoctor(r.Context(), d); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	stored, err := h.doctors.GetDoctor(r.Context(), d.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.Info("doctor upserted", zap.String("doctor_id", d.ID))
	httpx.WriteJSON(w, http.StatusOK, toDoctorResponse(stored))
}

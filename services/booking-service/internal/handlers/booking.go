package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fracto-health/fracto/libs/auth"
	"github.com/fracto-health/fracto/libs/httpx"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/booking"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"go.uber.org/zap"
)

type BookingHandler struct {
	ledger *booking.Ledger
	logger *zap.Logger
}

func NewBookingHandler(ledger *booking.Ledger, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{ledger: ledger, logger: logger}
}

type createAppointmentRequest struct {
	UserID          string `json:"userId" validate:"max=64"`
	DoctorID        string `json:"doctorId" validate:"required,max=64"`
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	TimeSlot        string `json:"timeSlot" validate:"required,max=32"`
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

// actingFor resolves the user a request acts on. Only staff may act for
// someone else.
func actingFor(id auth.Identity, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return id.UserID, nil
	}
	if userID != id.UserID && !id.IsAdmin() {
		return "", fmt.Errorf("acting for user %q: %w", userID, apperr.ErrForbidden)
	}
	return userID, nil
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	userID, err := actingFor(caller(r), req.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	a, err := h.ledger.Create(r.Context(), booking.CreateRequest{
		UserID:   userID,
		DoctorID: req.DoctorID,
		Date:     req.AppointmentDate,
		TimeSlot: req.TimeSlot,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(a))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if id := caller(r); a.UserID != id.UserID && !id.IsAdmin() {
		respondError(w, r, h.logger, fmt.Errorf("appointment %q: %w", a.ID, apperr.ErrForbidden))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(a))
}

// Cancel is the patient cancel. Staff calling it cancel on the patient's
// behalf.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	var (
		a   model.Appointment
		err error
	)
	if id.IsAdmin() {
		a, err = h.ledger.AdminCancel(r.Context(), r.PathValue("id"))
	} else {
		a, err = h.ledger.UserCancel(r.Context(), r.PathValue("id"), id.UserID)
	}
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *BookingHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := actingFor(caller(r), r.PathValue("userId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	appts, err := h.ledger.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponses(appts))
}

func (h *BookingHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f booking.ListFilter
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		s, err := model.ParseStatus(raw)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		f.Status = s
	}
	f.City = strings.TrimSpace(q.Get("city"))
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"dateFrom", &f.DateFrom}, {"dateTo", &f.DateTo}} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			continue
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		*p.dst = &d
	}

	appts, err := h.ledger.List(r.Context(), f)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponses(appts))
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *BookingHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.AdminCancel(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(a))
}

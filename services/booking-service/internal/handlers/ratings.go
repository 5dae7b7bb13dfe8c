package handlers

import (
	"fmt"
	"net/http"

	"github.com/fracto-health/fracto/libs/httpx"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/rating"
	"go.uber.org/zap"
)

type RatingHandler struct {
	aggregator *rating.Aggregator
	logger     *zap.Logger
}

func NewRatingHandler(aggregator *rating.Aggregator, logger *zap.Logger) *RatingHandler {
	return &RatingHandler{aggregator: aggregator, logger: logger}
}

type rateRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,max=64"`
	UserID        string `json:"userId"`
	DoctorID      string `json:"doctorId" validate:"required,max=64"`
	Score         int    `json:"score"`
	Comment       string `json:"comment"`
}

type rateResponse struct {
	Message string  `json:"message"`
	Average float64 `json:"average"`
}

// Rate records the caller's rating of their own visit.
func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id := caller(r)
	if req.UserID != "" && req.UserID != id.UserID {
		respondError(w, r, h.logger, fmt.Errorf("rating as user %q: %w", req.UserID, apperr.ErrForbidden))
		return
	}
	avg, err := h.aggregator.Rate(r.Context(), rating.RateRequest{
		AppointmentID: req.AppointmentID,
		CallerUserID:  id.UserID,
		DoctorID:      req.DoctorID,
		Score:         req.Score,
		Comment:       req.Comment,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rateResponse{Message: "Rated", Average: avg})
}

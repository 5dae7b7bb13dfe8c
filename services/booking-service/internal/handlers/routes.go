package handlers

import (
	"net/http"

	"github.com/fracto-health/fracto/libs/auth"
)

// Handlers groups the HTTP surface of the service.
type Handlers struct {
	Doctors  *DoctorHandler
	Bookings *BookingHandler
	Ratings  *RatingHandler
}

// Register mounts every route on mux. Public routes skip authentication;
// admin routes additionally require the Admin role.
func Register(mux *http.ServeMux, h Handlers, authn *auth.Authenticator) {
	public := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, fn)
	}
	member := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authn.Require(auth.RequireRole(fn, auth.RoleUser, auth.RoleAdmin)))
	}
	admin := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authn.Require(auth.RequireRole(fn, auth.RoleAdmin)))
	}

	public("GET /api/v1/public/doctors", h.Doctors.List)
	public("GET /api/v1/public/doctors/available", h.Doctors.Available)
	public("GET /api/v1/public/doctors/{id}", h.Doctors.Get)
	public("GET /api/v1/public/doctors/{id}/timeslots", h.Doctors.Timeslots)
	public("GET /api/v1/public/doctors/{id}/ratings", h.Doctors.Ratings)
	public("GET /api/v1/public/doctors/{id}/ratings/average", h.Doctors.Average)

	member("POST /api/v1/appointments", h.Bookings.Create)
	member("GET /api/v1/appointments/{id}", h.Bookings.Get)
	member("POST /api/v1/appointments/{id}/cancel", h.Bookings.Cancel)
	member("GET /api/v1/users/{userId}/appointments", h.Bookings.ListForUser)
	member("POST /api/v1/ratings", h.Ratings.Rate)

	admin("GET /api/v1/admin/appointments", h.Bookings.AdminList)
	admin("POST /api/v1/admin/appointments/{id}/approve", h.Bookings.Approve)
	admin("POST /api/v1/admin/appointments/{id}/cancel", h.Bookings.AdminCancel)
	admin("PUT /api/v1/admin/doctors/{id}", h.Doctors.Upsert)
}

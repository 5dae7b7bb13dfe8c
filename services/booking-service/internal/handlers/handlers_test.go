package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/fracto-health/fracto/libs/auth"
	"github.com/fracto-health/fracto/libs/httpx"
	"github.com/fracto-health/fracto/services/booking-service/internal/availability"
	"github.com/fracto-health/fracto/services/booking-service/internal/booking"
	"github.com/fracto-health/fracto/services/booking-service/internal/rating"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage/sqlite"
	"go.uber.org/zap"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	m, err := store.NewMigrator(nil)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := m.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zap.NewNop()
	avail := availability.NewService(store, nil, logger)
	ledger := booking.NewLedger(store, logger, booking.WithInvalidator(avail))
	agg := rating.NewAggregator(store, logger, rating.WithClock(func() time.Time {
		return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	}))

	mux := http.NewServeMux()
	Register(mux, Handlers{
		Doctors:  NewDoctorHandler(store, avail, agg, logger),
		Bookings: NewBookingHandler(ledger, logger),
		Ratings:  NewRatingHandler(agg, logger),
	}, auth.NewAuthenticator(auth.ModeGateway, nil))

	srv := httptest.NewServer(httpx.Chain(mux, httpx.WithRequestID, httpx.WithBodyLimit(1<<20)))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

// do sends body as JSON. user "" sends no identity; "admin" acts as staff.
func (s *testServer) do(method, path, user string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(auth.HeaderUserID, user)
		role := "User"
		if user == "admin" {
			role = "Admin"
		}
		req.Header.Set(auth.HeaderRole, role)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) seedDoctor() {
	s.t.Helper()
	var d doctorResponse
	code := s.do(http.MethodPut, "/api/v1/admin/doctors/doc-1", "admin", map[string]any{
		"name": "Dr. Rao", "city": "Pune", "specialization": "Cardiology",
		"startTime": "09:00", "endTime": "11:00", "slotDurationMinutes": 30,
	}, &d)
	if code != http.StatusOK || d.ID != "doc-1" || d.StartTime != 9*60 {
		s.t.Fatalf("seed doctor: %d %+v", code, d)
	}
}

func (s *testServer) timeslots(date string) []string {
	s.t.Helper()
	var slots []string
	if code := s.do(http.MethodGet, "/api/v1/public/doctors/doc-1/timeslots?date="+date, "", nil, &slots); code != http.StatusOK {
		s.t.Fatalf("timeslots: %d", code)
	}
	return slots
}

func TestBookAndCancelRestoresSlot(t *testing.T) {
	s := newTestServer(t)
	s.seedDoctor()

	all := []string{"09:00-09:30", "09:30-10:00", "10:00-10:30", "10:30-11:00"}
	if got := s.timeslots("2026-03-10"); !reflect.DeepEqual(got, all) {
		t.Fatalf("expected %v, got %v", all, got)
	}

	var appt appointmentResponse
	code := s.do(http.MethodPost, "/api/v1/appointments", "user-1", map[string]string{
		"userId": "user-1", "doctorId": "doc-1", "appointmentDate": "2026-03-10", "timeSlot": "09:30-10:00",
	}, &appt)
	if code != http.StatusCreated || appt.Status != "Pending" || appt.ID == "" {
		t.Fatalf("expected 201 pending, got %d %+v", code, appt)
	}

	want := []string{"09:00-09:30", "10:00-10:30", "10:30-11:00"}
	if got := s.timeslots("2026-03-10"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v after booking, got %v", want, got)
	}

	var errBody httpx.ErrorBody
	code = s.do(http.MethodPost, "/api/v1/appointments", "user-2", map[string]string{
		"doctorId": "doc-1", "appointmentDate": "2026-03-10", "timeSlot": "09:30-10:00",
	}, &errBody)
	if code != http.StatusConflict || errBody.Error != "slot_conflict" {
		t.Fatalf("expected 409 slot_conflict, got %d %+v", code, errBody)
	}

	if code := s.do(http.MethodPost, "/api/v1/appointments/"+appt.ID+"/cancel", "user-2", nil, &errBody); code != http.StatusForbidden {
		t.Fatalf("expected 403 cancelling someone else's appointment, got %d", code)
	}

	var cancelled appointmentResponse
	if code := s.do(http.MethodPost, "/api/v1/appointments/"+appt.ID+"/cancel", "user-1", nil, &cancelled); code != http.StatusOK || cancelled.Status != "Cancelled" {
		t.Fatalf("expected 200 cancelled, got %d %+v", code, cancelled)
	}
	if got := s.timeslots("2026-03-10"); !reflect.DeepEqual(got, all) {
		t.Fatalf("expected all slots after cancel, got %v", got)
	}

	code = s.do(http.MethodPost, "/api/v1/admin/appointments/"+appt.ID+"/approve", "admin", nil, &errBody)
	if code != http.StatusConflict || errBody.Error != "invalid_transition" {
		t.Fatalf("expected 409 invalid_transition, got %d %+v", code, errBody)
	}
}

func TestAuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	s.seedDoctor()

	var errBody httpx.ErrorBody
	code := s.do(http.MethodPost, "/api/v1/appointments", "", map[string]string{
		"doctorId": "doc-1", "appointmentDate": "2026-03-10", "timeSlot": "09:00-09:30",
	}, &errBody)
	if code != http.StatusUnauthorized || errBody.Error != "unauthorized" {
		t.Fatalf("expected 401, got %d %+v", code, errBody)
	}

	if code := s.do(http.MethodGet, "/api/v1/admin/appointments", "user-1", nil, &errBody); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", code)
	}

	code = s.do(http.MethodPost, "/api/v1/appointments", "user-1", map[string]string{
		"userId": "user-2", "doctorId": "doc-1", "appointmentDate": "2026-03-10", "timeSlot": "09:00-09:30",
	}, &errBody)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 booking for another user, got %d", code)
	}

	if code := s.do(http.MethodGet, "/api/v1/users/user-2/appointments", "user-1", nil, &errBody); code != http.StatusForbidden {
		t.Fatalf("expected 403 listing another user's appointments, got %d", code)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t)
	s.seedDoctor()

	cases := []struct {
		body map[string]string
		code int
		kind string
	}{
		{map[string]string{"appointmentDate": "2026-03-10", "timeSlot": "09:00-09:30"}, http.StatusBadRequest, "validation"},
		{map[string]string{"doctorId": "doc-1", "appointmentDate": "10-03-2026", "timeSlot": "09:00-09:30"}, http.StatusBadRequest, "validation"},
		{map[string]string{"doctorId": "doc-1", "appointmentDate": "2026-03-10", "timeSlot": "9-10"}, http.StatusBadRequest, "validation"},
		{map[string]string{"doctorId": "nope", "appointmentDate": "2026-03-10", "timeSlot": "09:00-09:30"}, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		var errBody httpx.ErrorBody
		code := s.do(http.MethodPost, "/api/v1/appointments", "user-1", tc.body, &errBody)
		if code != tc.code || errBody.Error != tc.kind {
			t.Fatalf("%v: expected %d %s, got %d %+v", tc.body, tc.code, tc.kind, code, errBody)
		}
	}
}

func TestApproveAndRate(t *testing.T) {
	s := newTestServer(t)
	s.seedDoctor()

	var appt appointmentResponse
	code := s.do(http.MethodPost, "/api/v1/appointments", "user-1", map[string]string{
		"doctorId": "doc-1", "appointmentDate": "2026-03-01", "timeSlot": "09:00-09:30",
	}, &appt)
	if code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}

	var booked appointmentResponse
	if code := s.do(http.MethodPost, "/api/v1/admin/appointments/"+appt.ID+"/approve", "admin", nil, &booked); code != http.StatusOK || booked.Status != "Booked" {
		t.Fatalf("expected booked, got %d %+v", code, booked)
	}

	var listed []appointmentResponse
	if code := s.do(http.MethodGet, "/api/v1/admin/appointments?status=booked&city=Pune", "admin", nil, &listed); code != http.StatusOK || len(listed) != 1 {
		t.Fatalf("expected one booked appointment, got %d %+v", code, listed)
	}

	rate := map[string]any{"appointmentId": appt.ID, "userId": "user-1", "doctorId": "doc-1", "score": 5, "comment": "great"}
	var rated rateResponse
	if code := s.do(http.MethodPost, "/api/v1/ratings", "user-1", rate, &rated); code != http.StatusOK || rated.Message != "Rated" || rated.Average != 5 {
		t.Fatalf("expected rated 5, got %d %+v", code, rated)
	}

	var errBody httpx.ErrorBody
	if code := s.do(http.MethodPost, "/api/v1/ratings", "user-1", rate, &errBody); code != http.StatusConflict || errBody.Error != "already_rated" {
		t.Fatalf("expected 409 already_rated, got %d %+v", code, errBody)
	}

	var avg averageResponse
	if code := s.do(http.MethodGet, "/api/v1/public/doctors/doc-1/ratings/average", "", nil, &avg); code != http.StatusOK || avg.Average != 5 || avg.Count != 1 {
		t.Fatalf("unexpected average: %d %+v", code, avg)
	}

	var doctors []doctorResponse
	if code := s.do(http.MethodGet, "/api/v1/public/doctors?minRating=4.5", "", nil, &doctors); code != http.StatusOK || len(doctors) != 1 || doctors[0].Rating != 5 {
		t.Fatalf("expected rated doctor in list, got %d %+v", code, doctors)
	}

	// Bookings after "today" cannot be rated yet.
	var later appointmentResponse
	s.do(http.MethodPost, "/api/v1/appointments", "user-1", map[string]string{
		"doctorId": "doc-1", "appointmentDate": "2026-03-06", "timeSlot": "09:00-09:30",
	}, &later)
	rate["appointmentId"] = later.ID
	if code := s.do(http.MethodPost, "/api/v1/ratings", "user-1", rate, &errBody); code != http.StatusBadRequest || errBody.Error != "too_early" {
		t.Fatalf("expected 400 too_early, got %d %+v", code, errBody)
	}
}

func TestAvailableDoctors(t *testing.T) {
	s := newTestServer(t)
	s.seedDoctor()

	var doctors []doctorResponse
	if code := s.do(http.MethodGet, "/api/v1/public/doctors/available?date=2026-03-10&city=pune", "", nil, &doctors); code != http.StatusOK || len(doctors) != 1 {
		t.Fatalf("expected doc-1 available, got %d %+v", code, doctors)
	}

	var errBody httpx.ErrorBody
	if code := s.do(http.MethodGet, "/api/v1/public/doctors/available", "", nil, &errBody); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date, got %d", code)
	}
	if code := s.do(http.MethodGet, "/api/v1/public/doctors/missing", "", nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown doctor, got %d", code)
	}
}

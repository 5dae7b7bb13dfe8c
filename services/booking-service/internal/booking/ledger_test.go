package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage/sqlite"
)

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	m, err := store.NewMigrator(nil)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	err = store.UpsertDoctor(ctx, model.Doctor{
		ID: "doc-1", Name: "Dr. Rao", City: "Pune", Specialization: "Cardiology",
		ProfileImagePath: model.DefaultProfileImagePath,
		StartTime:        9 * 60, EndTime: 11 * 60, SlotDurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	return NewLedger(store, nil, opts...), store
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, doctorID string, date time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, doctorID+"/"+model.FormatDate(date))
}

func TestCreate(t *testing.T) {
	inv := &recordingInvalidator{}
	l, _ := newTestLedger(t, WithInvalidator(inv), WithIDGenerator(func() string { return "appt-1" }))

	a, err := l.Create(context.Background(), CreateRequest{
		UserID: "user-1", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: " 09:30 - 10:00 ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != "appt-1" || a.Status != model.StatusPending || a.TimeSlot != "09:30-10:00" {
		t.Fatalf("unexpected appointment: %+v", a)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}
	if len(inv.calls) != 1 || inv.calls[0] != "doc-1/2026-03-01" {
		t.Fatalf("expected one cache invalidation, got %v", inv.calls)
	}
}

func TestCreate_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	cases := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing user", CreateRequest{DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:00-09:30"}, apperr.ErrValidation},
		{"bad date", CreateRequest{UserID: "u", DoctorID: "doc-1", Date: "03/01/2026", TimeSlot: "09:00-09:30"}, apperr.ErrValidation},
		{"bad slot", CreateRequest{UserID: "u", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "nine"}, apperr.ErrValidation},
		{"reversed slot", CreateRequest{UserID: "u", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "10:00-09:30"}, apperr.ErrValidation},
		{"unknown doctor", CreateRequest{UserID: "u", DoctorID: "doc-9", Date: "2026-03-01", TimeSlot: "09:00-09:30"}, apperr.ErrNotFound},
		{"off-grid slot", CreateRequest{UserID: "u", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:15-09:45"}, apperr.ErrValidation},
		{"outside hours", CreateRequest{UserID: "u", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "11:00-11:30"}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Create(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreate_SlotConflict(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	req := CreateRequest{UserID: "user-1", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:30-10:00"}
	if _, err := l.Create(ctx, req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	req.UserID = "user-2"
	if _, err := l.Create(ctx, req); !errors.Is(err, apperr.ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Create(ctx, CreateRequest{
				UserID: []string{"user-1", "user-2"}[i], DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "10:00-10:30",
			})
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d and %d", ok, conflicts)
	}

	day, _ := model.ParseDate("2026-03-01")
	blocked, err := store.HasBlockingAppointment(ctx, "doc-1", day, "10:00-10:30")
	if err != nil || !blocked {
		t.Fatalf("expected exactly one stored blocking appointment")
	}
}

func TestTransitions(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	a, err := l.Create(ctx, CreateRequest{UserID: "user-1", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:00-09:30"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	booked, err := l.Approve(ctx, a.ID)
	if err != nil || booked.Status != model.StatusBooked {
		t.Fatalf("expected booked, got %+v (%v)", booked, err)
	}
	if _, err := l.Approve(ctx, a.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition approving booked, got %v", err)
	}

	cancelled, err := l.AdminCancel(ctx, a.ID)
	if err != nil || cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %+v (%v)", cancelled, err)
	}
	if _, err := l.AdminCancel(ctx, a.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition cancelling twice, got %v", err)
	}
	if _, err := l.Approve(ctx, a.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition approving cancelled, got %v", err)
	}

	got, err := l.Get(ctx, a.ID)
	if err != nil || got.Status != model.StatusCancelled {
		t.Fatalf("expected stored status cancelled, got %+v (%v)", got, err)
	}
	if _, err := l.Approve(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserCancel(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	a, err := l.Create(ctx, CreateRequest{UserID: "user-1", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:00-09:30"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := l.UserCancel(ctx, a.ID, "user-2"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got, _ := l.Get(ctx, a.ID); got.Status != model.StatusPending {
		t.Fatalf("expected status untouched, got %s", got.Status)
	}

	cancelled, err := l.UserCancel(ctx, a.ID, "user-1")
	if err != nil || cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %+v (%v)", cancelled, err)
	}

	// The slot is free again.
	if _, err := l.Create(ctx, CreateRequest{UserID: "user-2", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:00-09:30"}); err != nil {
		t.Fatalf("expected rebooking to succeed, got %v", err)
	}
}

func TestListing(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	for _, r := range []CreateRequest{
		{UserID: "user-1", DoctorID: "doc-1", Date: "2026-03-01", TimeSlot: "09:00-09:30"},
		{UserID: "user-1", DoctorID: "doc-1", Date: "2026-03-05", TimeSlot: "09:00-09:30"},
		{UserID: "user-2", DoctorID: "doc-1", Date: "2026-03-02", TimeSlot: "09:00-09:30"},
	} {
		if _, err := l.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	mine, err := l.ListForUser(ctx, "user-1")
	if err != nil || len(mine) != 2 || model.FormatDate(mine[0].Date) != "2026-03-05" {
		t.Fatalf("expected user-1 appointments latest first, got %+v (%v)", mine, err)
	}

	from, _ := model.ParseDate("2026-03-02")
	all, err := l.List(ctx, ListFilter{City: "pune", DateFrom: &from, Status: model.StatusPending})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 appointments from 2026-03-02, got %+v (%v)", all, err)
	}

	to, _ := model.ParseDate("2026-03-01")
	if _, err := l.List(ctx, ListFilter{DateFrom: &from, DateTo: &to}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

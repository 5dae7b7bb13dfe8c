package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"blocking slot", &pgconn.PgError{Code: "23505", ConstraintName: constraintBlockingSlot}, apperr.ErrSlotConflict},
		{"wrapped blocking slot", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraintBlockingSlot}), apperr.ErrSlotConflict},
		{"duplicate rating", &pgconn.PgError{Code: "23505", ConstraintName: constraintRatingPerAppt}, apperr.ErrAlreadyRated},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "doctors_pkey"}, apperr.ErrInfrastructure},
		{"foreign key", &pgconn.PgError{Code: "23503"}, apperr.ErrNotFound},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "ratings_score_check"}, apperr.ErrValidation},
		{"connection", errors.New("connection refused"), apperr.ErrInfrastructure},
	}
	for _, tc := range cases {
		got := translate("op", tc.err)
		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
	if translate("op", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestIsNoRows(t *testing.T) {
	if !isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to match")
	}
	if isNoRows(errors.New("other")) {
		t.Fatal("unexpected match")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 || entries[0].Name() != "00001_init.sql" {
		t.Fatalf("unexpected migrations: %v", entries)
	}
}

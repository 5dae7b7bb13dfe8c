// Package postgres is the production storage backend on pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fracto-health/fracto/libs/db"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedded embed.FS

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"

	constraintBlockingSlot  = "appointments_blocking_slot_key"
	constraintRatingPerAppt = "ratings_appointment_id_key"
)

type Store struct {
	pool *db.Pool
}

var _ storage.Store = (*Store)(nil)

func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewMigrator runs the embedded migrations over the pool.
func NewMigrator(pool *db.Pool, logger *zap.Logger) (*db.Migrator, error) {
	return db.NewMigrator(goose.DialectPostgres, stdlib.OpenDBFromPool(pool.Pool), Migrations(), logger)
}

func (s *Store) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// translate maps a pgx error produced by op onto the apperr taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintBlockingSlot:
				return fmt.Errorf("%s: %w", op, apperr.ErrSlotConflict)
			case constraintRatingPerAppt:
				return fmt.Errorf("%s: %w", op, apperr.ErrAlreadyRated)
			}
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: referenced row missing: %w", op, apperr.ErrNotFound)
		case codeCheckViolation:
			return apperr.Validation("%s: %s", op, pgErr.ConstraintName)
		}
	}
	return apperr.Infrastructure(op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

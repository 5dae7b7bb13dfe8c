// Package apperr defines the error kinds returned by the booking core.
//
// Domain code wraps one of the sentinels below; callers classify with
// errors.Is and transports map kinds to status codes with Kind and HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrSlotConflict      = errors.New("slot already taken")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyRated      = errors.New("appointment already rated")
	ErrInfrastructure    = errors.New("infrastructure failure")
)

// ErrTooEarly rejects a rating submitted before the appointment day.
var ErrTooEarly = fmt.Errorf("%w: appointment date is in the future", ErrValidation)

// Validation returns an ErrValidation with a formatted detail.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

type infraError struct {
	op  string
	err error
}

func (e *infraError) Error() string   { return e.op + ": " + e.err.Error() }
func (e *infraError) Unwrap() []error { return []error{ErrInfrastructure, e.err} }

// Infrastructure marks err as a storage or dependency failure. Errors that
// already carry a kind pass through unchanged.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	return &infraError{op: op, err: err}
}

const (
	KindValidation        = "validation"
	KindTooEarly          = "too_early"
	KindNotFound          = "not_found"
	KindSlotConflict      = "slot_conflict"
	KindInvalidTransition = "invalid_transition"
	KindForbidden         = "forbidden"
	KindAlreadyRated      = "already_rated"
	KindInfrastructure    = "infrastructure"
	KindInternal          = "internal"
)

// Kind returns the stable name of err's kind.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTooEarly):
		return KindTooEarly
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSlotConflict):
		return KindSlotConflict
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrAlreadyRated):
		return KindAlreadyRated
	case errors.Is(err, ErrInfrastructure):
		return KindInfrastructure
	}
	return KindInternal
}

func HTTPStatus(err error) int {
	switch Kind(err) {
	case KindValidation, KindTooEarly:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindSlotConflict, KindInvalidTransition, KindAlreadyRated:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindInfrastructure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

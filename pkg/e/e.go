package e

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrDeadline           = errors.New("deadline exceeded")
	ErrCanceled           = errors.New("context canceled")
	ErrUniqueViolation    = errors.New("unique violation")
	ErrForbidden          = errors.New("forbidden")
	ErrEventQueueEmpty    = errors.New("event queue is empty")
	ErrInvalidCoordinates = fmt.Errorf("invalid coordinates: %w", ErrInvalidInput)
	ErrInvalidBBox        = fmt.Errorf("invalid bbox: %w", ErrInvalidInput)
	ErrInvalidZoom        = fmt.Errorf("invalid zoom: %w", ErrInvalidInput)

	ErrMissingRequiredField = fmt.Errorf("missing required field: %w", ErrInvalidInput)
	ErrInvalidIncidentType  = fmt.Errorf("invalid incident type: %w", ErrInvalidInput)
	ErrIncidentNotActive    = fmt.Errorf("incident not active: %w", ErrConflict)
	ErrProviderUnavailable  = errors.New("provider unavailable")
)

// Stable error kinds exposed to callers.
const (
	KindValidation          = "ValidationError"
	KindNotFound            = "NotFoundError"
	KindConflict            = "ConflictError"
	KindProviderUnavailable = "ProviderUnavailable"
	KindForbidden           = "ForbiddenError"
	KindStore               = "StoreError"
)

// Kind classifies err into one of the stable kinds. Anything unrecognised
// is reported as a store error so it is never mistaken for a client fault.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrProviderUnavailable):
		return KindProviderUnavailable
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindStore
	}
}

func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrDeadline)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrUniqueViolation)
		case "23503", "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrInternal)
}

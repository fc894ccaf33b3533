package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by every Store implementation. Callers discriminate
// with errors.Is and map them to distinct HTTP outcomes.
var (
	// ErrNotFound means the referenced article or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means a required field is missing or malformed.
	// The operation was rejected with no state change.
	ErrValidation = errors.New("invalid input")

	// ErrConflict means a slug uniqueness constraint was violated even after
	// the allocator's bounded retries.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable means the durable backend is unreachable or misconfigured.
	ErrUnavailable = errors.New("storage unavailable")
)

// mapPgError converts pgx/pgconn errors into the package's sentinel errors,
// wrapping them with the entity name for context. Context cancellation errors
// pass through untouched.
func mapPgError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", entity, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return fmt.Errorf("%s: %w", entity, ErrConflict)
		case pgErr.Code == "23514": // check_violation
			return fmt.Errorf("%s: %w", entity, ErrValidation)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exception
			return fmt.Errorf("%s: %v: %w", entity, err, ErrUnavailable)
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s: %v: %w", entity, err, ErrUnavailable)
	}

	return fmt.Errorf("%s: %w", entity, err)
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, before mapping. The slug allocator retries on it.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUniqueViolation is returned when a write collides with a unique key.
var ErrUniqueViolation = errors.New("unique constraint violation")

// ErrUnavailable wraps failures to reach the database.
var ErrUnavailable = errors.New("store unavailable")

const (
	uniqueViolationCode  = "23505"
	connectionErrorClass = "08"
)

// mapError translates driver errors into the package's sentinel errors.
// Errors it does not recognise are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolationCode:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pqErr.Constraint)
		case strings.HasPrefix(string(pqErr.Code), connectionErrorClass):
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}

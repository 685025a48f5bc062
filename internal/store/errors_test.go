package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23505", Constraint: "users_email_key"}), ErrUniqueViolation)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "08006"}), ErrUnavailable)
	assert.ErrorIs(t, mapError(driver.ErrBadConn), ErrUnavailable)

	deadline := mapError(context.DeadlineExceeded)
	assert.ErrorIs(t, deadline, ErrUnavailable)
	assert.ErrorIs(t, deadline, context.DeadlineExceeded)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
	assert.Equal(t, context.Canceled, mapError(context.Canceled))
}

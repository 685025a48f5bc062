package services

import (
	"context"
	"errors"

	"github.com/articlehub/apiserver/internal/store"
	"github.com/articlehub/apiserver/internal/validation"
)

// BulkFailure reports why the record at Index was not inserted.
type BulkFailure struct {
	Index   int               `json:"index"`
	Error   string            `json:"error"`
	Details validation.Errors `json:"details,omitempty"`
}

// BulkResult is the outcome of a bulk insert. Records are attempted
// independently, so Inserted and Failures may both be non-empty.
type BulkResult[T any] struct {
	Inserted []T
	Failures []BulkFailure
}

// insertEach runs create for every item in order. Validation and uniqueness
// failures are recorded per index; any other error stops the run and is
// returned together with what was inserted so far.
func insertEach[F, T any](ctx context.Context, items []F, create func(context.Context, F) (T, error)) (BulkResult[T], error) {
	result := BulkResult[T]{Inserted: []T{}, Failures: []BulkFailure{}}

	for i, item := range items {
		created, err := create(ctx, item)
		if err == nil {
			result.Inserted = append(result.Inserted, created)
			continue
		}

		var verr validation.Errors
		switch {
		case errors.As(err, &verr):
			result.Failures = append(result.Failures, BulkFailure{Index: i, Error: "validation failed", Details: verr})
		case errors.Is(err, store.ErrUniqueViolation):
			result.Failures = append(result.Failures, BulkFailure{Index: i, Error: "duplicate value"})
		default:
			return result, err
		}
	}

	return result, nil
}

// EventPublisher receives domain events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, id int64, data any)
}

func publish(p EventPublisher, ctx context.Context, eventType string, id int64, data any) {
	if p == nil {
		return
	}
	p.Publish(ctx, eventType, id, data)
}

func emptyUpdate() error {
	return validation.Errors{"body": "At least one field must be supplied"}
}

// mapString returns a fresh pointer to fn(*p) so normalization never writes
// through to the caller's value.
func mapString(p *string, fn func(string) string) *string {
	if p == nil {
		return nil
	}
	v := fn(*p)
	return &v
}

package handlers

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/articlehub/apiserver/internal/auth"
	"github.com/articlehub/apiserver/internal/logging"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/internal/store"
	"github.com/articlehub/apiserver/internal/validation"
)

// maxBodyBytes bounds JSON request bodies, bulk inserts included.
const maxBodyBytes = 4 << 20

// ErrResponse is the failure envelope of every API route.
type ErrResponse struct {
	HTTPStatusCode int `json:"-"`

	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body render.M) {
	body["success"] = true
	render.Status(r, status)
	render.JSON(w, r, body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	_ = render.Render(w, r, &ErrResponse{HTTPStatusCode: status, Error: message})
}

// writeServiceError maps service and store errors onto the API envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var verr validation.Errors
	switch {
	case errors.As(err, &verr):
		_ = render.Render(w, r, &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Error: "validation failed", Details: verr})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, store.ErrUniqueViolation):
		writeError(w, r, http.StatusConflict, "a record with the same unique value already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, context.Canceled):
		logger.Debugw("request cancelled", "error", err)
	case errors.Is(err, store.ErrUnavailable):
		logger.Errorw("store unavailable", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		logger.Errorw("request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, render.M{"status": "ok"})
}

// APINotFound answers unknown /api routes with the JSON envelope.
func APINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "route not found")
}

// bulkStatus picks 201 when everything was inserted, 207 for a partial
// insert and 400 when nothing was.
func bulkStatus(inserted, failed int) int {
	switch {
	case failed == 0:
		return http.StatusCreated
	case inserted > 0:
		return http.StatusMultiStatus
	default:
		return http.StatusBadRequest
	}
}

func writeBulk[T any](w http.ResponseWriter, r *http.Request, inserted []T, failures []services.BulkFailure) {
	status := bulkStatus(len(inserted), len(failures))
	body := render.M{
		"success":       len(inserted) > 0,
		"insertedCount": len(inserted),
		"data":          inserted,
		"failures":      failures,
	}
	if len(inserted) == 0 {
		body["error"] = "no records inserted"
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

// bulkBatch is a bulk body decoded element by element. positions maps each
// decoded item back to its index in the request array.
type bulkBatch[F any] struct {
	items     []F
	positions []int
	rejected  []services.BulkFailure
}

// decodeBulk reads a JSON array and decodes every element on its own, so a
// badly typed record fails at its index while the rest are still attempted.
func decodeBulk[F any](w http.ResponseWriter, r *http.Request) (bulkBatch[F], bool) {
	var raw []json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return bulkBatch[F]{}, false
	}
	if len(raw) == 0 {
		writeError(w, r, http.StatusBadRequest, "request body must be a non-empty array")
		return bulkBatch[F]{}, false
	}

	batch := bulkBatch[F]{items: []F{}}
	for i, elem := range raw {
		var item F
		if err := render.DecodeJSON(bytes.NewReader(elem), &item); err != nil {
			batch.rejected = append(batch.rejected, decodeFailure(i, err))
			continue
		}
		batch.items = append(batch.items, item)
		batch.positions = append(batch.positions, i)
	}
	return batch, true
}

func decodeFailure(index int, err error) services.BulkFailure {
	failure := services.BulkFailure{Index: index, Error: "validation failed"}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		failure.Details = validation.Errors{typeErr.Field: "Invalid value"}
	} else {
		failure.Details = validation.Errors{"body": "Record is not a valid JSON object"}
	}
	return failure
}

// failures rebases insert failures onto request indexes and merges them with
// the decode failures in index order.
func (batch bulkBatch[F]) failures(inserted []services.BulkFailure) []services.BulkFailure {
	out := make([]services.BulkFailure, 0, len(batch.rejected)+len(inserted))
	out = append(out, batch.rejected...)
	for _, f := range inserted {
		f.Index = batch.positions[f.Index]
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b services.BulkFailure) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return out
}

// bulkFilterRequest is the body of PATCH and DELETE on a collection.
type bulkFilterRequest[F any] struct {
	Filter map[string]any `json:"filter"`
	Update F              `json:"update"`
}

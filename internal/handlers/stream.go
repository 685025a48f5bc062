package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/articlehub/apiserver/internal/logging"
)

const streamFlushEvery = 100

// arrayStream writes {"data":[...],"count":n,"success":bool} one element at
// a time. success is written last so a failure after the first element
// still yields a well-formed envelope.
type arrayStream struct {
	w       http.ResponseWriter
	r       *http.Request
	enc     *json.Encoder
	rc      *http.ResponseController
	count   int
	started bool
}

func newArrayStream(w http.ResponseWriter, r *http.Request) *arrayStream {
	return &arrayStream{w: w, r: r, enc: json.NewEncoder(w), rc: http.NewResponseController(w)}
}

func (s *arrayStream) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	s.w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(s.w, `{"data":[`)
}

func (s *arrayStream) Write(v any) error {
	s.start()
	if s.count > 0 {
		if _, err := io.WriteString(s.w, ","); err != nil {
			return err
		}
	}
	if err := s.enc.Encode(v); err != nil {
		return err
	}
	s.count++
	if s.count%streamFlushEvery == 0 {
		_ = s.rc.Flush()
	}
	return nil
}

// Close terminates the envelope. An error before the first element is
// reported as a regular error response.
func (s *arrayStream) Close(err error) {
	if err != nil && !s.started {
		writeServiceError(s.w, s.r, err)
		return
	}
	s.start()

	tail := map[string]any{"count": s.count, "success": err == nil}
	if err != nil {
		logger := logging.FromContext(s.r.Context())
		if errors.Is(err, context.Canceled) {
			logger.Debugw("stream cancelled", "written", s.count)
		} else {
			logger.Errorw("stream interrupted", "error", err, "written", s.count)
		}
		tail["error"] = "stream interrupted"
	}

	_, _ = io.WriteString(s.w, `],`)
	b, _ := json.Marshal(tail)
	// Splice the tail object's members into the open envelope.
	_, _ = s.w.Write(b[1:])
	_ = s.rc.Flush()
}

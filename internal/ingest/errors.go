package ingest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ferg-cod3s/pointerindex/internal/observability"
)

// Sentinel errors a handler can wrap with context and return; writeError
// maps them to the HTTP status the rest of the stack expects via
// errors.Is, following the teacher's HTTP-layer error-mapping pattern.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to its HTTP status and writes it as the response
// body. Persistence-layer failures (anything that isn't one of the
// validation/not-found/conflict sentinels) also go through the error
// handler, which logs with full context, records an ingest_errors_total
// metric, and forwards to Sentry when enabled.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError && s.errors != nil {
		s.errors.HandleError(r.Context(), err, observability.ErrorContext{
			Method:    operation,
			ErrorType: "persistence",
			ErrorCode: status,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

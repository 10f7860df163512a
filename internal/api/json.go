package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/brewmint/internal/apperr"
)

// Error codes carried in ErrorResponse.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal"
)

// ErrorResponse is the body of every JSON error response.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError describes a failed request. Code is stable across releases;
// Message is meant for people. RequestID matches the X-Request-Id of the
// server log line.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: APIError{
		Code:      code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// writeServiceError answers 404 for missing items and blobs. Anything else
// is logged with attrs and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string, attrs ...any) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "not found")
		return
	}
	slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
	writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal error")
}

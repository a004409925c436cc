package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/middleware/trace"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to status codes. Internal errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, operation,
			log.FieldError, err)
	}
	writeJSON(w, status, errorResponse{Error: message, RequestID: requestID(r)})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrScheduleNotFound):
		return http.StatusNotFound, core.ErrScheduleNotFound.Error()
	case errors.Is(err, core.ErrTransactionNotFound):
		return http.StatusNotFound, core.ErrTransactionNotFound.Error()
	case errors.Is(err, core.ErrInvalidYear):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func requestID(r *http.Request) string {
	return trace.RequestID(r.Context())
}

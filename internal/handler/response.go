package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/script-archive/internal/apperror"
)

// ErrorResponse is the standard error body: {"error": "..."}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the alternate 404 body used only by the empty-population
// outcome of multi-random sampling: {"message": "..."}. The asymmetry with
// ErrorResponse is a compatibility contract, not an accident — do not unify.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response. Headers and status must be set before the
// body; once Encode writes, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and body. This is the
// only place status-code mapping happens; services deal purely in apperror
// categories. Unknown errors (store failures included) become a generic 500
// so no driver internals leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: appErr.Message})
		case errors.Is(err, apperror.ErrEmptyCollection):
			writeJSON(w, http.StatusNotFound, MessageResponse{Message: appErr.Message})
		case errors.Is(err, apperror.ErrInternal):
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: appErr.Message})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: appErr.Message})
		}
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred"})
}

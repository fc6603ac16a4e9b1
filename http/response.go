package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/mongolink"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, mongolink.ErrConnectionNotDefined):
		WriteError(w, http.StatusNotFound, "not_defined", err.Error())
	case errors.Is(err, mongolink.ErrInvalidSettings), errors.Is(err, mongolink.ErrInvalidURI):
		WriteError(w, http.StatusInternalServerError, "invalid_settings", err.Error())
	case errors.Is(err, mongolink.ErrMissingDependency):
		WriteError(w, http.StatusInternalServerError, "missing_dependency", err.Error())
	case errors.Is(err, mongolink.ErrConnection):
		WriteError(w, http.StatusServiceUnavailable, "connection_error", "Database unavailable")
	case errors.Is(err, ErrNoHandle):
		WriteError(w, http.StatusInternalServerError, "no_connection", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

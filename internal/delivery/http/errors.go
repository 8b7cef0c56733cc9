package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to status codes. A refused transition is a
// 403 because clients treat it like a permission failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInvalidTransition):
		return http.StatusForbidden
	case entity.IsNotFound(err):
		return http.StatusNotFound
	case entity.IsInvalidInput(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeMessage(w, status, "internal server error")
		return
	}
	if errors.Is(err, entity.ErrVersionConflict) {
		w.Header().Set("Retry-After", "1")
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", entity.ErrInvalidInput, err)
	}
	return nil
}

// Package handler holds the JSON helpers shared by the controllers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status. Encode errors are ignored since
// the header is already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into dst. A malformed body becomes a
// validation error.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.NewValidation("body", "invalid JSON")
	}
	return nil
}

// StatusFor maps an application error onto an HTTP status.
func StatusFor(err error) int {
	var (
		unauthorized *appErrors.ErrUnauthorized
		forbidden    *appErrors.ErrForbidden
		validation   *appErrors.ErrValidation
		notFound     *appErrors.ErrNotFound
		precondition *appErrors.ErrPrecondition
		upload       *appErrors.ErrUpload
	)
	switch {
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &precondition):
		return http.StatusConflict
	case errors.As(err, &upload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error": "..."}. Server errors are logged and
// their detail is not sent to the client.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		msg = "internal server error"
	}
	WriteJSON(w, status, errorBody{Error: msg})
}

// UUIDParam returns the chi path parameter key, which must be a UUID.
func UUIDParam(r *http.Request, key string) (string, error) {
	return ParseUUID(key, chi.URLParam(r, key))
}

// ParseUUID validates raw as a UUID and returns its canonical form.
func ParseUUID(field, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", appErrors.NewValidation(field, "must be a UUID")
	}
	return id.String(), nil
}

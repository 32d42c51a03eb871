// Package handler provides HTTP handlers for the Victoria Identity API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/service"
)

// errorResponse is the JSON envelope for all error responses.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps a service error to its HTTP status and user-facing
// message. Guard and resolver rejections deliberately share the opaque
// "Invalid request" message so callers cannot probe setup state.
func respondError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, service.ErrOwnerAlreadySetUp), errors.Is(err, service.ErrInvalidClaim):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrInvalidEmail):
		status, message = http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, service.ErrMissingName):
		status, message = http.StatusBadRequest, "First and last names are mandatory"
	case errors.Is(err, service.ErrInvalidPassword):
		status, message = http.StatusBadRequest, passwordMessage(err)
	case errors.Is(err, domain.ErrEntityInvalid):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrSessionNotFound):
		status, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrUserNotFound):
		status, message = http.StatusNotFound, "User not found"
	default:
		status, message = http.StatusInternalServerError, "Internal server error"
		logger.Error().Err(err).Msg("request failed")
	}

	respondJSON(w, status, errorResponse{Status: "error", Message: message})
}

// passwordMessage converts a password policy error into its user-facing
// form, e.g. "Password must contain at least one number".
func passwordMessage(err error) string {
	rule := strings.TrimPrefix(err.Error(), service.ErrInvalidPassword.Error()+": ")
	return "Password " + rule
}

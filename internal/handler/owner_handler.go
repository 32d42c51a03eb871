package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/config"
	"github.com/prn-tf/victoria-identity/internal/metrics"
	"github.com/prn-tf/victoria-identity/internal/service"
)

// OwnerHandler serves the one-time instance owner setup endpoints.
type OwnerHandler struct {
	owners   *service.OwnerService
	sessions *service.SessionService
	session  config.SessionConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewOwnerHandler creates a new OwnerHandler.
func NewOwnerHandler(owners *service.OwnerService, sessions *service.SessionService, session config.SessionConfig, m *metrics.Metrics, logger zerolog.Logger) *OwnerHandler {
	return &OwnerHandler{
		owners:   owners,
		sessions: sessions,
		session:  session,
		metrics:  m,
		logger:   logger.With().Str("handler", "owner").Logger(),
	}
}

type claimRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// Claim handles POST /api/v1/owner. It claims the placeholder owner account
// and issues a fresh session for the configured identity.
func (h *OwnerHandler) Claim(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "Invalid request"})
		return
	}

	owner, err := h.owners.Claim(r.Context(), service.ClaimInput{
		UserID:    user.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		h.metrics.ClaimAttempts.WithLabelValues(claimOutcome(err)).Inc()
		respondError(w, h.logger, err)
		return
	}

	session, err := h.sessions.Issue(r.Context(), owner)
	if err != nil {
		// The claim is committed; only the cookie failed. The operator
		// can still log in with the credentials just set.
		h.metrics.ClaimAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		respondError(w, h.logger, err)
		return
	}

	h.metrics.ClaimAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	setSessionCookie(w, h.session, session.Token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, owner.Sanitize())
}

// SkipSetup handles POST /api/v1/owner/skip-setup, durably recording that
// owner setup was bypassed.
func (h *OwnerHandler) SkipSetup(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.owners.SkipSetup(r.Context(), user.ID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.metrics.SetupSkips.Inc()
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// claimOutcome buckets a claim error for the attempts counter.
func claimOutcome(err error) string {
	switch {
	case errors.Is(err, service.ErrOwnerAlreadySetUp):
		return metrics.OutcomeAlreadySetUp
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrMissingName):
		return metrics.OutcomeInvalidPayload
	case errors.Is(err, service.ErrInvalidClaim):
		return metrics.OutcomeInvalidClaim
	default:
		return metrics.OutcomeError
	}
}

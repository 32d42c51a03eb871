package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/config"
	"github.com/prn-tf/victoria-identity/internal/metrics"
	"github.com/prn-tf/victoria-identity/internal/service"
)

// AuthHandler serves login, logout and current-identity endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	session  config.SessionConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *service.SessionService, session config.SessionConfig, m *metrics.Metrics, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		session:  session,
		metrics:  m,
		logger:   logger.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "Invalid request"})
		return
	}

	user, session, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.Logins.WithLabelValues("rejected").Inc()
		} else {
			h.metrics.Logins.WithLabelValues("error").Inc()
		}
		respondError(w, h.logger, err)
		return
	}

	h.metrics.Logins.WithLabelValues("success").Inc()
	setSessionCookie(w, h.session, session.Token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, user.Sanitize())
}

// Logout handles POST /api/v1/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.session.CookieName); err == nil {
		if err := h.sessions.Logout(r.Context(), cookie.Value); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	clearSessionCookie(w, h.session)
	respondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Me handles GET /api/v1/me, returning the authenticated identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	respondJSON(w, http.StatusOK, user.Sanitize())
}

// setSessionCookie writes the session cookie on the response.
func setSessionCookie(w http.ResponseWriter, cfg config.SessionConfig, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the response.
func clearSessionCookie(w http.ResponseWriter, cfg config.SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

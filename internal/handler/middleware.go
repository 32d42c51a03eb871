package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/metrics"
	"github.com/prn-tf/victoria-identity/internal/service"
	"github.com/prn-tf/victoria-identity/internal/settings"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the authenticated user stored by the auth
// middleware, or nil.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

// Authenticator resolves the requester's identity from the session cookie.
type Authenticator struct {
	sessions   *service.SessionService
	users      *service.UserService
	runtime    *settings.Runtime
	cookieName string
	logger     zerolog.Logger
}

// NewAuthenticator creates an Authenticator reading the named session cookie.
func NewAuthenticator(sessions *service.SessionService, users *service.UserService, runtime *settings.Runtime, cookieName string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		sessions:   sessions,
		users:      users,
		runtime:    runtime,
		cookieName: cookieName,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// Load resolves the session cookie to a user and stores it in the request
// context. While the instance has no configured owner, cookieless requests
// fall back to the owner shell so the setup flow can bootstrap itself.
func (a *Authenticator) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(a.cookieName); err == nil {
			user, err := a.sessions.Validate(r.Context(), cookie.Value)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
				return
			}
		}

		if !a.runtime.IsOwnerSetUp() {
			if shell, err := a.users.FindOwner(r.Context()); err == nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, shell)))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Require rejects requests that carry no resolved identity.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Status: "error", Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwner rejects requests whose identity does not hold the owner role.
func (a *Authenticator) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.Role.IsOwner() {
			respondJSON(w, http.StatusForbidden, errorResponse{Status: "error", Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per completed request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// RequestMetrics records request durations labeled by matched route pattern.
func RequestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}

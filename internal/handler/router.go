package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/metrics"
)

// Pinger reports backing-store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig bundles the dependencies for building the API router.
type RouterConfig struct {
	Owner   *OwnerHandler
	Auth    *AuthHandler
	Session *Authenticator
	Metrics *metrics.Metrics
	DB      Pinger
	Logger  zerolog.Logger
}

// NewRouter builds the chi router for the API server.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(RequestMetrics(cfg.Metrics))
	}

	r.Get("/health", healthHandler(cfg.DB))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Session.Load)

		r.Post("/login", cfg.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Session.Require)

			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/me", cfg.Auth.Me)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Session.RequireOwner)

				r.Post("/owner", cfg.Owner.Claim)
				r.Post("/owner/skip-setup", cfg.Owner.SkipSetup)
			})
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

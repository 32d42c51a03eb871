// Package metrics provides Prometheus instrumentation for Victoria Identity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim attempt outcomes recorded by ClaimAttempts.
const (
	OutcomeSuccess        = "success"
	OutcomeAlreadySetUp   = "already_set_up"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeInvalidClaim   = "invalid_claim"
	OutcomeError          = "error"
)

// Metrics holds the Prometheus collectors for the server.
type Metrics struct {
	registry *prometheus.Registry

	// ClaimAttempts counts owner claim attempts by outcome.
	ClaimAttempts *prometheus.CounterVec

	// SetupSkips counts explicit setup skips.
	SetupSkips prometheus.Counter

	// Logins counts login attempts by outcome.
	Logins *prometheus.CounterVec

	// HTTPDuration observes request latency by method, route and status.
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers the server's collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		ClaimAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "victoria",
			Name:      "owner_claim_attempts_total",
			Help:      "Owner claim attempts by outcome.",
		}, []string{"outcome"}),
		SetupSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "victoria",
			Name:      "owner_setup_skips_total",
			Help:      "Explicit owner setup skips.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "victoria",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "victoria",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(m.ClaimAttempts, m.SetupSkips, m.Logins, m.HTTPDuration)
	return m
}

// ObserveHTTP records one completed HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registrations *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	logins        *prometheus.CounterVec
	resets        *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_submissions_total",
				Help: "Registration submissions by outcome.",
			},
			[]string{"outcome"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_decisions_total",
				Help: "Registration decisions by decision and outcome.",
			},
			[]string{"decision", "outcome"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "password_reset_total",
				Help: "Password reset operations by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.registrations,
		m.decisions,
		m.logins,
		m.resets,
	)

	return m
}

// Registry exposes the underlying registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware measures request count, latency and in-flight requests.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		err := c.Next()

		// route path keeps label cardinality bounded
		path := c.Route().Path
		status := strconv.Itoa(c.Response().StatusCode())
		m.httpRequestDuration.WithLabelValues(c.Method(), path, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(c.Method(), path, status).Inc()

		return err
	}
}

// ObserveRegistration counts a registration submission.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObserveDecision counts an approve/reject decision.
func (m *Metrics) ObserveDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision, outcome).Inc()
}

// ObserveLogin counts a login attempt.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveReset counts a password reset request or confirmation.
func (m *Metrics) ObserveReset(stage, outcome string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(stage, outcome).Inc()
}

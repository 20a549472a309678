// Package metrics exposes Prometheus counters for the livestream backend.
package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and counters.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	requestErrorsTotal   prometheus.Counter
	sessionsStartedTotal prometheus.Counter
	sessionsEndedTotal   prometheus.Counter
	tokensIssuedTotal    *prometheus.CounterVec
	vendorErrorsTotal    prometheus.Counter
}

// New creates and registers the backend's metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_requests_total",
		Help: "Total number of HTTP requests received",
	})
	requestErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_request_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	sessionsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_sessions_started_total",
		Help: "Total number of livestream sessions started",
	})
	sessionsEndedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_sessions_ended_total",
		Help: "Total number of livestream sessions ended",
	})
	tokensIssuedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livestream_tokens_issued_total",
		Help: "Total number of access tokens issued, by role",
	}, []string{"role"})
	vendorErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_vendor_errors_total",
		Help: "Total number of failed vendor API interactions",
	})

	registry.MustRegister(
		requestsTotal,
		requestErrorsTotal,
		sessionsStartedTotal,
		sessionsEndedTotal,
		tokensIssuedTotal,
		vendorErrorsTotal,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		requestErrorsTotal:   requestErrorsTotal,
		sessionsStartedTotal: sessionsStartedTotal,
		sessionsEndedTotal:   sessionsEndedTotal,
		tokensIssuedTotal:    tokensIssuedTotal,
		vendorErrorsTotal:    vendorErrorsTotal,
	}
}

// IncSessionsStarted increments the sessions started counter.
func (m *Metrics) IncSessionsStarted() { m.sessionsStartedTotal.Inc() }

// IncSessionsEnded increments the sessions ended counter.
func (m *Metrics) IncSessionsEnded() { m.sessionsEndedTotal.Inc() }

// IncTokensIssued increments the token counter for the given role
// ("streamer" or "audience").
func (m *Metrics) IncTokensIssued(role string) {
	m.tokensIssuedTotal.WithLabelValues(role).Inc()
}

// IncVendorErrors increments the vendor error counter.
func (m *Metrics) IncVendorErrors() { m.vendorErrorsTotal.Inc() }

// Handler returns an http.Handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestMiddleware returns gin middleware that records request and error
// counts.
func (m *Metrics) RequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.requestsTotal.Inc()
		if c.Writer.Status() >= 400 {
			m.requestErrorsTotal.Inc()
		}
	}
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the relay service.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	sessionsCreatedTotal prometheus.Counter
	sessionsEvictedTotal prometheus.Counter
	relayRequestsTotal   prometheus.Counter
	activeSessions       prometheus.Gauge
	errorsTotal          prometheus.Counter
}

// New creates and registers Prometheus metrics for the relay service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Total number of HTTP requests received",
	})
	sessionsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_sessions_created_total",
		Help: "Total number of transcoding sessions successfully created",
	})
	sessionsEvictedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_sessions_evicted_total",
		Help: "Total number of sessions evicted by the idle janitor",
	})
	relayRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_passthrough_requests_total",
		Help: "Total number of passthrough relay requests",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_sessions",
		Help: "Number of live transcoding sessions",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		sessionsCreatedTotal,
		sessionsEvictedTotal,
		relayRequestsTotal,
		activeSessions,
		errorsTotal,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		sessionsCreatedTotal: sessionsCreatedTotal,
		sessionsEvictedTotal: sessionsEvictedTotal,
		relayRequestsTotal:   relayRequestsTotal,
		activeSessions:       activeSessions,
		errorsTotal:          errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncSessionsCreated increments the sessions created counter.
func (m *Metrics) IncSessionsCreated() {
	m.sessionsCreatedTotal.Inc()
}

// IncSessionsEvicted increments the sessions evicted counter.
func (m *Metrics) IncSessionsEvicted() {
	m.sessionsEvictedTotal.Inc()
}

// IncRelayRequests increments the passthrough relay request counter.
func (m *Metrics) IncRelayRequests() {
	m.relayRequestsTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

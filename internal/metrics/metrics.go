// Package metrics exposes Prometheus instrumentation for the ledger.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	transitions     *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New registers the ledger metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transitions_total",
		Help: "Status transitions attempted, by target status, source and result.",
	}, []string{"status", "source", "result"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_webhook_events_total",
		Help: "Gateway callback events by type and outcome.",
	}, []string{"type", "outcome"})
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Outbound gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of outbound gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	reg.MustRegister(transitions, reconciliations, gatewayCalls, gatewayLatency, httpRequests, httpLatency)
	return &Metrics{
		transitions:     transitions,
		reconciliations: reconciliations,
		gatewayCalls:    gatewayCalls,
		gatewayLatency:  gatewayLatency,
		httpRequests:    httpRequests,
		httpLatency:     httpLatency,
	}
}

// Transition results.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
)

func (m *Metrics) ObserveTransition(status, source, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(source), result).Inc()
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveGatewayCall records a single outbound gateway call.
func (m *Metrics) ObserveGatewayCall(operation string, err error, duration time.Duration) {
	if m == nil || m.gatewayCalls == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls.WithLabelValues(operation, outcome).Inc()
	m.gatewayLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, code int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

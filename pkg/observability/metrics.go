package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records dispatcher activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	dispatches      *prometheus.CounterVec
	transfers       prometheus.Counter
	providerErrors  *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	droppedCalls    *prometheus.CounterVec
	storeOps        *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_dispatch_total",
				Help: "Total number of dispatched turns by pathway node and provider",
			},
			[]string{"node", "provider", "stream"},
		),
		transfers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "callflow_transfer_requests_total",
				Help: "Total number of transferCall frames emitted to callers",
			},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_provider_errors_total",
				Help: "Total number of failed provider calls",
			},
			[]string{"provider", "reason"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callflow_provider_duration_seconds",
				Help:    "Duration of provider calls until the response or stream completed",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		droppedCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_dropped_function_calls_total",
				Help: "Function-call fragments filtered out of the stream",
			},
			[]string{"reason"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_store_operations_total",
				Help: "Call-state store operations by outcome (ok, miss, error)",
			},
			[]string{"op", "result"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callflow_store_operation_duration_seconds",
				Help:    "Duration of call-state store operations",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),
	}

	m.registry.MustRegister(
		m.dispatches,
		m.transfers,
		m.providerErrors,
		m.providerLatency,
		m.droppedCalls,
		m.storeOps,
		m.storeLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Dispatched counts a turn served at node.
func (m *Metrics) Dispatched(node, provider string, stream bool) {
	if m == nil {
		return
	}
	label := "false"
	if stream {
		label = "true"
	}
	m.dispatches.WithLabelValues(node, provider, label).Inc()
}

// Transferred counts an emitted transfer frame.
func (m *Metrics) Transferred() {
	if m == nil {
		return
	}
	m.transfers.Inc()
}

// ProviderFailed counts a failed provider call. reason is "timeout" or "error".
func (m *Metrics) ProviderFailed(provider, reason string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, reason).Inc()
}

// ObserveProvider records how long a provider call took.
func (m *Metrics) ObserveProvider(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// DroppedFunctionCall counts a function-call fragment the filter discarded.
func (m *Metrics) DroppedFunctionCall(reason string) {
	if m == nil {
		return
	}
	m.droppedCalls.WithLabelValues(reason).Inc()
}

// ObserveStore records one call-state store operation.
func (m *Metrics) ObserveStore(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op, result).Inc()
	m.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

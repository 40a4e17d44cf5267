package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports engine metrics through its own registry.
type PrometheusCollector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	completionsTotal  *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	inFlight          *prometheus.GaugeVec
	registry          *prometheus.Registry
}

// NewCollector creates a Prometheus-backed collector with a fresh registry.
func NewCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listops_operations_total",
			Help: "Total number of list operations by operator and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listops_operation_duration_seconds",
			Help:    "Duration of list operations by operator",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 180.0},
		},
		[]string{"operation"},
	)

	completionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listops_completions_total",
			Help: "Total number of completion requests by operator and outcome",
		},
		[]string{"operation", "status"},
	)

	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listops_retries_total",
			Help: "Total number of retried units of work by operator and reason",
		},
		[]string{"operation", "reason"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listops_errors_total",
			Help: "Total number of failed operations by operator and error type",
		},
		[]string{"operation", "error_type"},
	)

	inFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listops_completions_in_flight",
			Help: "Completions currently awaiting the backend",
		},
		[]string{"operation"},
	)

	registry.MustRegister(operationsTotal, operationDuration, completionsTotal, retriesTotal, errorsTotal, inFlight)

	return &PrometheusCollector{
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		completionsTotal:  completionsTotal,
		retriesTotal:      retriesTotal,
		errorsTotal:       errorsTotal,
		inFlight:          inFlight,
		registry:          registry,
	}
}

// RecordOperation counts a finished operation and observes its duration.
func (m *PrometheusCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(durationMs) / 1000.0)
}

// RecordCompletion counts one request sent to the completion backend.
func (m *PrometheusCollector) RecordCompletion(ctx context.Context, operation string, status string) {
	m.completionsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRetry counts one retried unit.
func (m *PrometheusCollector) RecordRetry(ctx context.Context, operation string, reason string) {
	m.retriesTotal.WithLabelValues(operation, reason).Inc()
}

// RecordError counts a failed operation by error class.
func (m *PrometheusCollector) RecordError(ctx context.Context, operation string, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetInFlight sets the in-flight gauge for operation.
func (m *PrometheusCollector) SetInFlight(ctx context.Context, operation string, n int) {
	m.inFlight.WithLabelValues(operation).Set(float64(n))
}

// Registry returns the Prometheus registry for HTTP exposure
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}

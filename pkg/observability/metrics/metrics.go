// Package metrics defines the operation metrics recorded by application
// services and queue workers.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics records attempts, outcomes and latency of named operations.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// PrometheusOperationMetrics implements OperationMetrics with prometheus vectors.
type PrometheusOperationMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPrometheusOperationMetrics registers the operation vectors under namespace.
func NewPrometheusOperationMetrics(reg prometheus.Registerer, namespace string) *PrometheusOperationMetrics {
	labels := []string{"operation", "service"}
	m := &PrometheusOperationMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Number of operation attempts.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Number of operations that completed without an infrastructure error.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Number of operations that failed with an error or panic.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.successes, m.failures, m.duration)
	}
	return m
}

func (m *PrometheusOperationMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusOperationMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusOperationMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusOperationMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

// NoopOperationMetrics discards everything.
type NoopOperationMetrics struct{}

func (NoopOperationMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoopOperationMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoopOperationMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoopOperationMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}

var (
	_ OperationMetrics = (*PrometheusOperationMetrics)(nil)
	_ OperationMetrics = NoopOperationMetrics{}
)

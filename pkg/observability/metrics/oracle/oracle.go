package oraclemetrics

import (
	"context"
	"strconv"

	"github.com/Black-And-White-Club/raffle/pkg/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// OracleMetrics extends operation metrics with coordinator counters.
type OracleMetrics interface {
	metrics.OperationMetrics
	RecordRequest(ctx context.Context, subscriptionID int64)
	RecordFulfillment(ctx context.Context, subscriptionID int64, payment int64)
	RecordSubscriptionBalance(ctx context.Context, subscriptionID int64, balance int64)
}

type prometheusMetrics struct {
	*metrics.PrometheusOperationMetrics
	requests     *prometheus.CounterVec
	fulfillments *prometheus.CounterVec
	payments     *prometheus.CounterVec
	balance      *prometheus.GaugeVec
}

// NewPrometheus registers the oracle instruments on reg.
func NewPrometheus(reg prometheus.Registerer) OracleMetrics {
	labels := []string{"subscription_id"}
	m := &prometheusMetrics{
		PrometheusOperationMetrics: metrics.NewPrometheusOperationMetrics(reg, "oracle"),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "requests_total",
			Help:      "Accepted randomness requests.",
		}, labels),
		fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "fulfillments_total",
			Help:      "Delivered fulfillments.",
		}, labels),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "payments_nanolink_total",
			Help:      "Fulfillment payments charged, in nano-LINK.",
		}, labels),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oracle",
			Name:      "subscription_balance_nanolink",
			Help:      "Subscription balance after the last change.",
		}, labels),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.fulfillments, m.payments, m.balance)
	}
	return m
}

func (m *prometheusMetrics) RecordRequest(_ context.Context, subscriptionID int64) {
	m.requests.WithLabelValues(strconv.FormatInt(subscriptionID, 10)).Inc()
}

func (m *prometheusMetrics) RecordFulfillment(_ context.Context, subscriptionID int64, payment int64) {
	id := strconv.FormatInt(subscriptionID, 10)
	m.fulfillments.WithLabelValues(id).Inc()
	m.payments.WithLabelValues(id).Add(float64(payment))
}

func (m *prometheusMetrics) RecordSubscriptionBalance(_ context.Context, subscriptionID int64, balance int64) {
	m.balance.WithLabelValues(strconv.FormatInt(subscriptionID, 10)).Set(float64(balance))
}

type noop struct {
	metrics.NoopOperationMetrics
}

// NewNoop returns metrics that record nothing.
func NewNoop() OracleMetrics {
	return noop{}
}

func (noop) RecordRequest(context.Context, int64)                    {}
func (noop) RecordFulfillment(context.Context, int64, int64)         {}
func (noop) RecordSubscriptionBalance(context.Context, int64, int64) {}

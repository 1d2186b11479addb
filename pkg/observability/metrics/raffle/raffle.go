package rafflemetrics

import (
	"context"

	"github.com/Black-And-White-Club/raffle/pkg/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// RaffleMetrics extends operation metrics with round gauges.
type RaffleMetrics interface {
	metrics.OperationMetrics
	RecordRound(ctx context.Context, state string, players int, pot int64)
	RecordUpkeepCheck(ctx context.Context, needed bool)
	RecordWinnerPicked(ctx context.Context, prize int64)
	RecordKeeperRun(ctx context.Context, outcome string)
}

type prometheusMetrics struct {
	*metrics.PrometheusOperationMetrics
	players      prometheus.Gauge
	pot          prometheus.Gauge
	state        *prometheus.GaugeVec
	upkeepChecks *prometheus.CounterVec
	winners      prometheus.Counter
	prizes       prometheus.Counter
	keeperRuns   *prometheus.CounterVec
}

// NewPrometheus registers the raffle instruments on reg.
func NewPrometheus(reg prometheus.Registerer) RaffleMetrics {
	m := &prometheusMetrics{
		PrometheusOperationMetrics: metrics.NewPrometheusOperationMetrics(reg, "raffle"),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raffle",
			Name:      "players",
			Help:      "Players in the current round.",
		}),
		pot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raffle",
			Name:      "pot_gwei",
			Help:      "Current pot in gwei.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "raffle",
			Name:      "state",
			Help:      "1 for the current round state, 0 otherwise.",
		}, []string{"state"}),
		upkeepChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "upkeep_checks_total",
			Help:      "Upkeep checks by outcome.",
		}, []string{"needed"}),
		winners: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "winners_total",
			Help:      "Resolved rounds.",
		}),
		prizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "prizes_gwei_total",
			Help:      "Total gwei paid out to winners.",
		}),
		keeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "keeper_runs_total",
			Help:      "Keeper job runs by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.players, m.pot, m.state, m.upkeepChecks, m.winners, m.prizes, m.keeperRuns)
	}
	return m
}

func (m *prometheusMetrics) RecordRound(_ context.Context, state string, players int, pot int64) {
	m.players.Set(float64(players))
	m.pot.Set(float64(pot))
	m.state.Reset()
	m.state.WithLabelValues(state).Set(1)
}

func (m *prometheusMetrics) RecordUpkeepCheck(_ context.Context, needed bool) {
	if needed {
		m.upkeepChecks.WithLabelValues("true").Inc()
		return
	}
	m.upkeepChecks.WithLabelValues("false").Inc()
}

func (m *prometheusMetrics) RecordWinnerPicked(_ context.Context, prize int64) {
	m.winners.Inc()
	m.prizes.Add(float64(prize))
}

func (m *prometheusMetrics) RecordKeeperRun(_ context.Context, outcome string) {
	m.keeperRuns.WithLabelValues(outcome).Inc()
}

type noop struct {
	metrics.NoopOperationMetrics
}

// NewNoop returns metrics that record nothing.
func NewNoop() RaffleMetrics {
	return noop{}
}

func (noop) RecordRound(context.Context, string, int, int64) {}
func (noop) RecordUpkeepCheck(context.Context, bool)         {}
func (noop) RecordWinnerPicked(context.Context, int64)       {}
func (noop) RecordKeeperRun(context.Context, string)         {}

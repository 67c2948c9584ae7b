package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by the engine hooks.
// Each Metrics owns its registry, so several engines in one process
// (or one test binary) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	stageVisits   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	routes        *prometheus.CounterVec
	recoveries    *prometheus.CounterVec
	turns         *prometheus.CounterVec
	turnDuration  prometheus.Histogram
}

// NewMetrics creates and registers the archguide collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archguide_stage_visits_total",
				Help: "Total number of stage executions",
			},
			[]string{"stage", "degraded"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archguide_stage_duration_seconds",
				Help:    "Duration of stage executions",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"stage"},
		),
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archguide_route_decisions_total",
				Help: "Supervisor decisions by candidate, resolved stage and rule",
			},
			[]string{"candidate", "resolved", "reason"},
		),
		recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archguide_recovery_outcomes_total",
				Help: "Structured output recoveries by winning strategy",
			},
			[]string{"strategy", "failed"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archguide_turns_total",
				Help: "Completed turns by intent",
			},
			[]string{"intent"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "archguide_turn_duration_seconds",
				Help:    "Wall time of a full turn",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
	}
	m.registry.MustRegister(m.stageVisits, m.stageDuration, m.routes, m.recoveries, m.turns, m.turnDuration)
	return m
}

// Registry exposes the underlying registry, e.g. for tests or extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			m.stageVisits.WithLabelValues(string(e.Stage), strconv.FormatBool(e.Degraded)).Inc()
			m.stageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			m.routes.WithLabelValues(string(e.Candidate), string(e.Resolved), e.Reason).Inc()
		},
		OnRecovery: func(ctx context.Context, e *domain.RecoveryEvent) {
			m.recoveries.WithLabelValues(e.Strategy, strconv.FormatBool(e.Err != nil)).Inc()
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(string(e.Intent)).Inc()
			m.turnDuration.Observe(e.Duration.Seconds())
		},
	}
}

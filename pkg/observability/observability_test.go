package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
		}
	}
	return 0
}

func TestMetricsHooks(t *testing.T) {
	m := NewMetrics()
	h := m.Hooks()
	ctx := context.Background()

	h.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageTactics, Duration: time.Second})
	h.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageTactics, Degraded: true})
	h.OnRoute(ctx, &domain.RouteEvent{Candidate: domain.StageTactics, Resolved: domain.StageASR, Reason: "asr-detour"})
	h.OnRecovery(ctx, &domain.RecoveryEvent{Strategy: "direct", Items: 3})
	h.OnRecovery(ctx, &domain.RecoveryEvent{Strategy: "none", Err: domain.ErrParseFailure})
	h.OnTurnEnd(ctx, &domain.TurnEvent{Intent: domain.IntentTactics, Duration: 2 * time.Second})

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"archguide_stage_visits_total", map[string]string{"stage": "tactics", "degraded": "false"}, 1},
		{"archguide_stage_visits_total", map[string]string{"stage": "tactics", "degraded": "true"}, 1},
		{"archguide_stage_duration_seconds", map[string]string{"stage": "tactics"}, 2},
		{"archguide_route_decisions_total", map[string]string{"candidate": "tactics", "resolved": "asr", "reason": "asr-detour"}, 1},
		{"archguide_recovery_outcomes_total", map[string]string{"strategy": "direct", "failed": "false"}, 1},
		{"archguide_recovery_outcomes_total", map[string]string{"strategy": "none", "failed": "true"}, 1},
		{"archguide_turns_total", map[string]string{"intent": "tactics"}, 1},
		{"archguide_turn_duration_seconds", nil, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, counterValue(t, m, tt.name, tt.labels), "%s %v", tt.name, tt.labels)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.Hooks().OnTurnEnd(context.Background(), &domain.TurnEvent{Intent: domain.IntentGreeting})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `archguide_turns_total{intent="greeting"} 1`)
}

func TestNewMetrics_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := LogHooks(logger)
	ctx := context.Background()

	h.OnStageEnter(ctx, &domain.StageEvent{EventBase: domain.NewEventBase(domain.EventStageEnter, "s1"), Stage: domain.StageStyle})
	h.OnStageLeave(ctx, &domain.StageEvent{EventBase: domain.NewEventBase(domain.EventStageLeave, "s1"), Stage: domain.StageStyle, Err: errors.New("boom")})
	h.OnTurnEnd(ctx, &domain.TurnEvent{EventBase: domain.NewEventBase(domain.EventTurnEnd, "s1"), Intent: domain.IntentStyle})

	out := buf.String()
	assert.Contains(t, out, `"msg":"stage_enter"`)
	assert.Contains(t, out, `"level":"WARN","msg":"stage_leave"`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, `"msg":"turn_end"`)
	assert.Contains(t, out, `"session_id":"s1"`)
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnRoute: func(context.Context, *domain.RouteEvent) { calls = append(calls, "a.route") },
	}
	b := domain.LifecycleHooks{
		OnRoute:   func(context.Context, *domain.RouteEvent) { calls = append(calls, "b.route") },
		OnTurnEnd: func(context.Context, *domain.TurnEvent) { calls = append(calls, "b.turn") },
	}

	h := Chain(a, domain.LifecycleHooks{}, b)
	assert.Nil(t, h.OnStageEnter)
	assert.Nil(t, h.OnRecovery)

	h.OnRoute(context.Background(), &domain.RouteEvent{})
	h.OnTurnEnd(context.Background(), &domain.TurnEvent{})
	assert.Equal(t, []string{"a.route", "b.route", "b.turn"}, calls)
}

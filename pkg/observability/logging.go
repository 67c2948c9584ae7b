package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/archguide/pkg/domain"
)

// LogHooks logs every lifecycle event on logger.
// Stage entries and route decisions are Debug; failures are Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.Debug("stage_enter", "session_id", e.SessionID, "stage", e.Stage)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			if e.Err != nil {
				logger.Warn("stage_leave",
					"session_id", e.SessionID,
					"stage", e.Stage,
					"degraded", e.Degraded,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.Info("stage_leave",
				"session_id", e.SessionID,
				"stage", e.Stage,
				"degraded", e.Degraded,
				"duration", e.Duration,
			)
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			logger.Debug("route",
				"session_id", e.SessionID,
				"candidate", e.Candidate,
				"resolved", e.Resolved,
				"reason", e.Reason,
			)
		},
		OnRecovery: func(ctx context.Context, e *domain.RecoveryEvent) {
			if e.Err != nil {
				logger.Warn("recovery", "session_id", e.SessionID, "strategy", e.Strategy, "err", e.Err)
				return
			}
			logger.Info("recovery", "session_id", e.SessionID, "strategy", e.Strategy, "items", e.Items)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Info("turn_end",
				"session_id", e.SessionID,
				"intent", e.Intent,
				"visited", e.Visited,
				"duration", e.Duration,
			)
		},
	}
}

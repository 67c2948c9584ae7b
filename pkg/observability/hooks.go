package observability

import (
	"context"

	"github.com/aretw0/archguide/pkg/domain"
)

// Chain returns hooks that call every non-nil callback of each set, in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var stageEnter, stageLeave []func(context.Context, *domain.StageEvent)
	var route []func(context.Context, *domain.RouteEvent)
	var recovery []func(context.Context, *domain.RecoveryEvent)
	var turnEnd []func(context.Context, *domain.TurnEvent)

	for _, h := range sets {
		if h.OnStageEnter != nil {
			stageEnter = append(stageEnter, h.OnStageEnter)
		}
		if h.OnStageLeave != nil {
			stageLeave = append(stageLeave, h.OnStageLeave)
		}
		if h.OnRoute != nil {
			route = append(route, h.OnRoute)
		}
		if h.OnRecovery != nil {
			recovery = append(recovery, h.OnRecovery)
		}
		if h.OnTurnEnd != nil {
			turnEnd = append(turnEnd, h.OnTurnEnd)
		}
	}

	if len(stageEnter) > 0 {
		out.OnStageEnter = func(ctx context.Context, e *domain.StageEvent) {
			for _, fn := range stageEnter {
				fn(ctx, e)
			}
		}
	}
	if len(stageLeave) > 0 {
		out.OnStageLeave = func(ctx context.Context, e *domain.StageEvent) {
			for _, fn := range stageLeave {
				fn(ctx, e)
			}
		}
	}
	if len(route) > 0 {
		out.OnRoute = func(ctx context.Context, e *domain.RouteEvent) {
			for _, fn := range route {
				fn(ctx, e)
			}
		}
	}
	if len(recovery) > 0 {
		out.OnRecovery = func(ctx context.Context, e *domain.RecoveryEvent) {
			for _, fn := range recovery {
				fn(ctx, e)
			}
		}
	}
	if len(turnEnd) > 0 {
		out.OnTurnEnd = func(ctx context.Context, e *domain.TurnEvent) {
			for _, fn := range turnEnd {
				fn(ctx, e)
			}
		}
	}
	return out
}

package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/clarify/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event at debug level,
// failed steps at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter",
				"session_id", e.SessionID,
				"step", e.Phase,
				"iteration", e.Iteration,
			)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "step_failed",
					"session_id", e.SessionID,
					"step", e.Phase,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "step_leave",
				"session_id", e.SessionID,
				"step", e.Phase,
				"duration", e.Duration,
			)
		},
		OnSuspend: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "suspend", "session_id", e.SessionID, "phase", e.Phase)
		},
		OnComplete: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "session_complete", "session_id", e.SessionID, "iterations", e.Iteration)
		},
		OnClassified: func(ctx context.Context, e *domain.ClassificationEvent) {
			logger.DebugContext(ctx, "classified", "session_id", e.SessionID, "outcome", e.Outcome)
		},
	}
}

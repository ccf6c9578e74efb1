package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/voyage/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, tool returns at
// info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter", "session_id", e.SessionID, "phase", e.Phase)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave",
				"session_id", e.SessionID,
				"phase", e.Phase,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "session_id", e.SessionID, "tool_name", e.ToolName, "call_id", e.CallID)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.InfoContext(ctx, "tool_return",
				"session_id", e.SessionID,
				"tool_name", e.ToolName,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
		OnPause: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "awaiting approval", "session_id", e.SessionID)
		},
	}
}

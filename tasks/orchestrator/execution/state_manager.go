package execution

import (
	"context"
	"errors"

	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/store"
)

// StateManager maps engine events onto the task store.
type StateManager interface {
	ReportProgress(ctx context.Context, execCtx *ExecutionContext, progress int) error
	TransitionToCompleted(ctx context.Context, execCtx *ExecutionContext, result *tasks.ResearchResult) error
	TransitionToFailed(ctx context.Context, execCtx *ExecutionContext, message string) error
}

// DefaultStateManager writes straight to the store.
// Store failures are logged but never fail the run: the run is detached from
// any caller and a missing or finished task must not crash it.
type DefaultStateManager struct {
	store  store.TaskStore
	logger *logger.Logger
}

var _ StateManager = (*DefaultStateManager)(nil)

func NewDefaultStateManager(store store.TaskStore, logger *logger.Logger) *DefaultStateManager {
	return &DefaultStateManager{
		store:  store,
		logger: logger,
	}
}

func (sm *DefaultStateManager) ReportProgress(ctx context.Context, execCtx *ExecutionContext, progress int) error {
	if err := sm.store.UpdateProgress(ctx, execCtx.TaskID, progress); err != nil {
		sm.logStoreError(execCtx, "failed to update progress", err, map[string]any{
			"progress": progress,
		})
		return nil
	}

	sm.logger.Debug("progress updated", map[string]any{
		"task_id":  execCtx.TaskID,
		"progress": progress,
	})
	return nil
}

func (sm *DefaultStateManager) TransitionToCompleted(ctx context.Context, execCtx *ExecutionContext, result *tasks.ResearchResult) error {
	if err := sm.store.SetResult(ctx, execCtx.TaskID, result); err != nil {
		sm.logStoreError(execCtx, "failed to store task result", err, nil)
		return nil
	}

	sm.logger.Task(execCtx.TaskID, "task completed", map[string]any{
		"path":        execCtx.Path.String(),
		"duration_ms": execCtx.Duration().Milliseconds(),
	})
	return nil
}

func (sm *DefaultStateManager) TransitionToFailed(ctx context.Context, execCtx *ExecutionContext, message string) error {
	if err := sm.store.SetError(ctx, execCtx.TaskID, message); err != nil {
		sm.logStoreError(execCtx, "failed to store task failure", err, map[string]any{
			"original_error": message,
		})
		return nil
	}

	sm.logger.TaskWarn(execCtx.TaskID, "task failed", map[string]any{
		"error":       message,
		"duration_ms": execCtx.Duration().Milliseconds(),
	})
	return nil
}

func (sm *DefaultStateManager) logStoreError(execCtx *ExecutionContext, msg string, err error, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["error"] = err.Error()
	fields["task_missing"] = errors.Is(err, store.ErrTaskNotFound)
	fields["task_finished"] = errors.Is(err, store.ErrTaskFinished)
	sm.logger.TaskWarn(execCtx.TaskID, msg, fields)
}

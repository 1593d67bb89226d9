package orchestrator

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"research-orchestrator/errors"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/runners"
	"research-orchestrator/tasks/store"

	"github.com/google/uuid"
)

// Orchestrator is the submission boundary for research tasks.
type Orchestrator interface {
	// SubmitResearch creates a pending task and dispatches its job. The
	// returned task is a snapshot taken after dispatch.
	SubmitResearch(ctx context.Context, query string, maxResults int) (*tasks.Task, error)

	// GetTask returns a snapshot of the task.
	GetTask(ctx context.Context, taskID string) (*tasks.Task, error)

	// GetTaskStatus returns just the status for lightweight polling.
	GetTaskStatus(ctx context.Context, taskID string) (tasks.TaskStatus, error)
}

// orchestrator is the single implementation; scheduling behaviour comes from
// the injected runner.
type orchestrator struct {
	store             store.TaskStore
	runner            runners.Runner
	defaultMaxResults int
	logger            *logger.Logger
}

var _ Orchestrator = (*orchestrator)(nil)

func NewOrchestrator(store store.TaskStore, runner runners.Runner, defaultMaxResults int, lg *logger.Logger) Orchestrator {
	return &orchestrator{
		store:             store,
		runner:            runner,
		defaultMaxResults: tasks.NormalizeMaxResults(defaultMaxResults, tasks.DefaultMaxResults),
		logger:            lg,
	}
}

func (o *orchestrator) SubmitResearch(ctx context.Context, query string, maxResults int) (*tasks.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("query cannot be empty")
	}

	taskID := uuid.New().String()
	if err := o.store.Create(ctx, taskID, query); err != nil {
		o.logger.Task(taskID, "failed to create task", map[string]any{
			"error": err.Error(),
		})
		var dup *store.DuplicateTaskError
		if stdErrors.As(err, &dup) {
			return nil, errors.NewConflictError(err.Error(), map[string]any{"task_id": taskID})
		}
		return nil, errors.NewInternalError("failed to create task")
	}

	job := tasks.Job{
		TaskID:      taskID,
		Query:       query,
		MaxResults:  tasks.NormalizeMaxResults(maxResults, o.defaultMaxResults),
		SubmittedAt: time.Now().UTC(),
	}

	o.logger.Task(taskID, "research submitted", map[string]any{
		"max_results": job.MaxResults,
		"runner_type": fmt.Sprintf("%T", o.runner),
	})

	if err := o.runner.Run(ctx, job); err != nil {
		o.logger.TaskWarn(taskID, "task dispatch failed", map[string]any{
			"error":       err.Error(),
			"runner_type": fmt.Sprintf("%T", o.runner),
		})

		// a synchronous run has already recorded its own failure
		setErr := o.store.SetError(context.WithoutCancel(ctx), taskID, dispatchMessage(err))
		if setErr != nil && !stdErrors.Is(setErr, store.ErrTaskFinished) {
			o.logger.TaskWarn(taskID, "failed to record dispatch failure", map[string]any{
				"update_error":   setErr.Error(),
				"original_error": err.Error(),
			})
		}

		return o.snapshot(ctx, taskID), err
	}

	return o.snapshot(ctx, taskID), nil
}

// snapshot never fails the submission; the task was created above.
func (o *orchestrator) snapshot(ctx context.Context, taskID string) *tasks.Task {
	task, err := o.store.Get(ctx, taskID)
	if err != nil {
		o.logger.TaskWarn(taskID, "failed to read submitted task", map[string]any{
			"error": err.Error(),
		})
		return &tasks.Task{ID: taskID, Status: tasks.StatusPending}
	}
	return task
}

func dispatchMessage(err error) string {
	if taskErr, ok := errors.IsTaskError(err); ok {
		return fmt.Sprintf("dispatch failed: %s", taskErr.Message)
	}
	return fmt.Sprintf("dispatch failed: %s", err.Error())
}

func (o *orchestrator) GetTask(ctx context.Context, taskID string) (*tasks.Task, error) {
	task, err := o.store.Get(ctx, taskID)
	if err != nil {
		if stdErrors.Is(err, store.ErrTaskNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("task %s not found", taskID))
		}
		return nil, errors.NewInternalError(fmt.Sprintf("failed to read task %s", taskID))
	}
	return task, nil
}

func (o *orchestrator) GetTaskStatus(ctx context.Context, taskID string) (tasks.TaskStatus, error) {
	task, err := o.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	return task.Status, nil
}

package execution

import (
	"context"
	"fmt"
	"strings"

	"research-orchestrator/errors"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/pipeline"
)

// ExecutionWorkflow runs one research job to a terminal state.
type ExecutionWorkflow interface {
	Execute(ctx context.Context, job tasks.Job) error
}

// DefaultExecutionWorkflow selects a plan, drives its steps over a
// run-scoped toolset and records the outcome through the state manager.
type DefaultExecutionWorkflow struct {
	tools         pipeline.ToolProvider
	stateManager  StateManager
	resultHandler ResultHandler
	logger        *logger.Logger
}

var _ ExecutionWorkflow = (*DefaultExecutionWorkflow)(nil)

func NewDefaultExecutionWorkflow(
	tools pipeline.ToolProvider,
	stateManager StateManager,
	resultHandler ResultHandler,
	logger *logger.Logger,
) *DefaultExecutionWorkflow {
	return &DefaultExecutionWorkflow{
		tools:         tools,
		stateManager:  stateManager,
		resultHandler: resultHandler,
		logger:        logger,
	}
}

// Execute always leaves the task completed or failed, including when the run
// panics outside a step. The returned error is the failure that was recorded,
// if any.
func (w *DefaultExecutionWorkflow) Execute(ctx context.Context, job tasks.Job) (err error) {
	execCtx := NewExecutionContext(job)

	defer func() {
		if r := recover(); r != nil {
			err = w.fail(ctx, execCtx, errors.NewInternalError(fmt.Sprintf("research run panicked: %v", r)))
		}
	}()

	return w.execute(ctx, execCtx, job)
}

func (w *DefaultExecutionWorkflow) execute(ctx context.Context, execCtx *ExecutionContext, job tasks.Job) error {
	if strings.TrimSpace(job.Query) == "" {
		return w.fail(ctx, execCtx, errors.NewValidationError("query cannot be empty"))
	}

	w.report(ctx, execCtx, pipeline.CheckpointAccepted)

	path := pipeline.ChoosePath(job.Query)
	execCtx.SetPath(path)
	plan, err := pipeline.PlanFor(path)
	if err != nil {
		return w.fail(ctx, execCtx, err)
	}

	w.logger.Task(job.TaskID, "research started", map[string]any{
		"path":        path.String(),
		"steps":       plan.StepNames(),
		"max_results": job.MaxResults,
	})

	toolset, err := w.tools.Acquire(ctx)
	if err != nil {
		return w.fail(ctx, execCtx, fmt.Errorf("acquire tools: %w", err))
	}
	defer func() {
		if closeErr := toolset.Close(); closeErr != nil {
			w.logger.TaskWarn(job.TaskID, "failed to release tools", map[string]any{
				"error": closeErr.Error(),
			})
		}
	}()

	state := pipeline.NewState(job.Query, tasks.NormalizeMaxResults(job.MaxResults, tasks.DefaultMaxResults))

	for _, step := range plan.Steps() {
		outcome := w.runStep(ctx, execCtx, step, state, toolset)

		switch outcome.Kind() {
		case pipeline.OutcomeFatal:
			return w.fail(ctx, execCtx, outcome.Err())
		case pipeline.OutcomeSoftFailure:
			for _, skipped := range outcome.Skipped() {
				execCtx.AddSkipped(skipped.Item)
				fields := map[string]any{"step": step.Name, "item": skipped.Item}
				if skipped.Err != nil {
					fields["error"] = skipped.Err.Error()
				}
				w.logger.TaskWarn(job.TaskID, "skipped item", fields)
			}
		}

		w.report(ctx, execCtx, step.Checkpoint)
	}

	result, err := w.resultHandler.HandleSuccess(execCtx, state)
	if err != nil {
		return w.fail(ctx, execCtx, err)
	}

	if err := w.stateManager.TransitionToCompleted(ctx, execCtx, result); err != nil {
		w.logger.Error("failed to transition task to completed state", map[string]any{
			"task_id": job.TaskID,
			"error":   err.Error(),
		})
	}
	return nil
}

// runStep turns a panicking step into a fatal outcome.
func (w *DefaultExecutionWorkflow) runStep(
	ctx context.Context,
	execCtx *ExecutionContext,
	step pipeline.Step,
	state *pipeline.State,
	toolset *pipeline.Toolset,
) (outcome pipeline.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = pipeline.Fatal(errors.NewInternalError(fmt.Sprintf("step %s panicked: %v", step.Name, r)))
		}
	}()

	w.logger.Debug("step started", map[string]any{
		"task_id": execCtx.TaskID,
		"step":    step.Name,
	})
	outcome = step.Run(ctx, state, toolset)
	w.logger.Debug("step finished", map[string]any{
		"task_id": execCtx.TaskID,
		"step":    step.Name,
		"outcome": outcome.Kind().String(),
	})
	return outcome
}

func (w *DefaultExecutionWorkflow) report(ctx context.Context, execCtx *ExecutionContext, progress int) {
	if err := w.stateManager.ReportProgress(ctx, execCtx, progress); err != nil {
		w.logger.Error("failed to report progress", map[string]any{
			"task_id":  execCtx.TaskID,
			"progress": progress,
			"error":    err.Error(),
		})
	}
}

func (w *DefaultExecutionWorkflow) fail(ctx context.Context, execCtx *ExecutionContext, err error) error {
	execCtx.SetError(err)
	message := w.resultHandler.HandleFailure(execCtx)

	// the run context may already be done when a step timed out
	if transitionErr := w.stateManager.TransitionToFailed(context.WithoutCancel(ctx), execCtx, message); transitionErr != nil {
		w.logger.Error("failed to transition task to failed state", map[string]any{
			"task_id":          execCtx.TaskID,
			"transition_error": transitionErr.Error(),
			"original_error":   err.Error(),
		})
	}
	return err
}

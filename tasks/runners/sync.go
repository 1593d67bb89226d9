package runners

import (
	"context"

	"research-orchestrator/errors"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/orchestrator/execution"
)

var _ Runner = (*SynchronousRunner)(nil)

// SynchronousRunner executes jobs in the caller's goroutine and blocks until
// the task is terminal. Used by the one-shot CLI and in tests.
type SynchronousRunner struct {
	workflow execution.ExecutionWorkflow
}

func NewSynchronousRunner(workflow execution.ExecutionWorkflow) *SynchronousRunner {
	return &SynchronousRunner{workflow: workflow}
}

// Run returns the failure the workflow recorded, if any.
func (r *SynchronousRunner) Run(ctx context.Context, job tasks.Job) error {
	if err := r.workflow.Execute(ctx, job); err != nil {
		// Preserve structured errors, wrap others as execution errors
		if _, ok := errors.IsTaskError(err); ok {
			return err
		}
		return errors.NewExecutionError("research task failed", map[string]any{
			"task_id": job.TaskID,
			"error":   err.Error(),
		})
	}
	return nil
}

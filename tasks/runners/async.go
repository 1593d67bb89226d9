package runners

import (
	"context"

	"research-orchestrator/errors"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/queue"
)

// AsynchronousRunner enqueues jobs for a worker pool to pick up.
type AsynchronousRunner struct {
	queue queue.TaskQueue
}

var _ Runner = (*AsynchronousRunner)(nil)

func NewAsynchronousRunner(queue queue.TaskQueue) *AsynchronousRunner {
	return &AsynchronousRunner{queue: queue}
}

func (r *AsynchronousRunner) Run(ctx context.Context, job tasks.Job) error {
	if err := r.queue.Enqueue(ctx, job); err != nil {
		// Preserve structured errors, wrap others as execution errors
		if _, ok := errors.IsTaskError(err); ok {
			return err
		}
		return errors.NewExecutionError("failed to enqueue task", map[string]any{
			"task_id": job.TaskID,
			"error":   err.Error(),
		})
	}

	return nil
}

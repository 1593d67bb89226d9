package runners

import (
	"context"

	"research-orchestrator/tasks"
)

// Runner hands a created task's job to whatever executes it.
type Runner interface {
	// Run dispatches job. An error means the job will not run and the
	// caller is responsible for failing the task.
	Run(ctx context.Context, job tasks.Job) error
}

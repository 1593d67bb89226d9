package runners

import (
	"context"
	"fmt"
	"sync"
	"time"

	"research-orchestrator/errors"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/orchestrator/execution"
)

var _ Runner = (*BackgroundRunner)(nil)

// BackgroundRunner starts one goroutine per job. Runs are detached from the
// submitting request and bounded only by the task timeout.
type BackgroundRunner struct {
	workflow    execution.ExecutionWorkflow
	taskTimeout time.Duration
	logger      *logger.Logger

	mu       sync.Mutex
	draining bool
	inFlight int
	wg       sync.WaitGroup
}

func NewBackgroundRunner(workflow execution.ExecutionWorkflow, taskTimeout time.Duration, lg *logger.Logger) *BackgroundRunner {
	return &BackgroundRunner{
		workflow:    workflow,
		taskTimeout: taskTimeout,
		logger:      lg,
	}
}

// Run returns as soon as the goroutine is started.
func (r *BackgroundRunner) Run(ctx context.Context, job tasks.Job) error {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return errors.NewConflictError("runner is shutting down", map[string]any{
			"task_id": job.TaskID,
		})
	}
	r.inFlight++
	r.wg.Add(1)
	r.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go r.execute(runCtx, job)
	return nil
}

func (r *BackgroundRunner) execute(ctx context.Context, job tasks.Job) {
	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
		r.wg.Done()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("research run panicked", map[string]any{
				"task_id": job.TaskID,
				"panic":   fmt.Sprint(rec),
			})
		}
	}()

	if r.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := r.workflow.Execute(ctx, job)

	fields := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		fields["error"] = err.Error()
		r.logger.TaskWarn(job.TaskID, "background run finished with error", fields)
		return
	}
	r.logger.Task(job.TaskID, "background run finished", fields)
}

// InFlight reports how many runs have not finished yet.
func (r *BackgroundRunner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Wait stops accepting new jobs and blocks until in-flight runs finish or
// ctx is done.
func (r *BackgroundRunner) Wait(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("background runs still in flight at shutdown", map[string]any{
			"in_flight": r.InFlight(),
		})
		return ctx.Err()
	}
}

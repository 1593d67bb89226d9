package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/orchestrator/execution"
	"research-orchestrator/tasks/queue"
)

// idleBackoff spaces out retries after a dequeue error.
const idleBackoff = 200 * time.Millisecond

type Worker struct {
	id          int
	queue       queue.TaskQueue
	workflow    execution.ExecutionWorkflow
	taskTimeout time.Duration
	logger      *logger.Logger
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func NewWorker(
	id int,
	queue queue.TaskQueue,
	workflow execution.ExecutionWorkflow,
	taskTimeout time.Duration,
	logger *logger.Logger,
) *Worker {
	return &Worker{
		id:          id,
		queue:       queue,
		workflow:    workflow,
		taskTimeout: taskTimeout,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start runs the dequeue loop until ctx is done, Stop is called or the queue closes.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("worker starting", map[string]any{
		"worker_id": w.id,
	})

	defer w.logger.Info("worker stopped", map[string]any{
		"worker_id": w.id,
	})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping due to context cancellation", map[string]any{
				"worker_id": w.id,
			})
			return

		case <-w.stopCh:
			w.logger.Info("worker stopping", map[string]any{
				"worker_id": w.id,
			})
			return

		default:
			if !w.processNextJob(ctx) {
				return
			}
		}
	}
}

// Stop signals the worker to stop gracefully
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// processNextJob reports false when the worker should exit.
func (w *Worker) processNextJob(ctx context.Context) bool {
	job, err := w.queue.Dequeue(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, queue.ErrQueueClosed) {
			w.logger.Info("queue closed, worker exiting", map[string]any{
				"worker_id": w.id,
			})
			return false
		}

		w.logger.Error("failed to dequeue job", map[string]any{
			"worker_id": w.id,
			"error":     err.Error(),
		})
		select {
		case <-time.After(idleBackoff):
		case <-ctx.Done():
		case <-w.stopCh:
		}
		return true
	}

	w.execute(ctx, job)
	return true
}

// execute runs job detached from the pool's context so a shutdown lets the
// run finish within its own timeout.
func (w *Worker) execute(ctx context.Context, job tasks.Job) {
	runCtx := context.WithoutCancel(ctx)
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, w.taskTimeout)
		defer cancel()
	}

	w.logger.Task(job.TaskID, "worker processing job", map[string]any{
		"worker_id":     w.id,
		"queued_for_ms": time.Since(job.SubmittedAt).Milliseconds(),
	})

	if err := w.workflow.Execute(runCtx, job); err != nil {
		w.logger.TaskWarn(job.TaskID, "job finished with error", map[string]any{
			"worker_id": w.id,
			"error":     err.Error(),
		})
		return
	}

	w.logger.Task(job.TaskID, "job finished", map[string]any{
		"worker_id": w.id,
	})
}

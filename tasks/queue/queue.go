package queue

import (
	"context"
	"errors"

	"research-orchestrator/tasks"
)

var (
	// ErrQueueClosed is returned by operations on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrQueueFull is returned when a bounded queue cannot take another job.
	ErrQueueFull = errors.New("queue is full")
)

// TaskQueue hands research jobs from the submission boundary to workers.
type TaskQueue interface {
	// Enqueue adds a job to the tail of the queue
	Enqueue(ctx context.Context, job tasks.Job) error

	// Dequeue blocks until a job is available or ctx is done
	Dequeue(ctx context.Context) (tasks.Job, error)

	// GetQueueDepth returns the number of jobs waiting in queue
	GetQueueDepth(ctx context.Context) (int64, error)

	// Close cleanly shuts down the queue
	Close() error
}

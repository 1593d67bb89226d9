package queue

import (
	"context"
	"sync"

	"research-orchestrator/tasks"
)

const DefaultMemoryQueueSize = 1024

// MemoryTaskQueue is a bounded FIFO backed by a buffered channel.
// Jobs still queued when the process exits are lost.
type MemoryTaskQueue struct {
	jobs      chan tasks.Job
	done      chan struct{}
	closeOnce sync.Once
}

var _ TaskQueue = (*MemoryTaskQueue)(nil)

func NewMemoryTaskQueue(size int) *MemoryTaskQueue {
	if size <= 0 {
		size = DefaultMemoryQueueSize
	}
	return &MemoryTaskQueue{
		jobs: make(chan tasks.Job, size),
		done: make(chan struct{}),
	}
}

// Enqueue never blocks; a full queue is reported as ErrQueueFull.
func (q *MemoryTaskQueue) Enqueue(ctx context.Context, job tasks.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryTaskQueue) Dequeue(ctx context.Context) (tasks.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.done:
		return tasks.Job{}, ErrQueueClosed
	case <-ctx.Done():
		return tasks.Job{}, ctx.Err()
	}
}

func (q *MemoryTaskQueue) GetQueueDepth(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

func (q *MemoryTaskQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	return nil
}

package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"research-orchestrator/tasks"

	"gotest.tools/v3/assert"
)

func newTestJob(id, query string) tasks.Job {
	return tasks.Job{
		TaskID:      id,
		Query:       query,
		MaxResults:  5,
		SubmittedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Shared checks run against every TaskQueue implementation.
func testQueueBasicOperations(t *testing.T, queue TaskQueue) {
	ctx := context.Background()

	original := newTestJob("task-basic", "what is entropy")

	err := queue.Enqueue(ctx, original)
	assert.NilError(t, err, "Failed to enqueue job")

	depth, err := queue.GetQueueDepth(ctx)
	assert.NilError(t, err, "Failed to get queue depth")
	assert.Equal(t, int64(1), depth, "Queue depth should be 1 after enqueue")

	dequeued, err := queue.Dequeue(ctx)
	assert.NilError(t, err, "Failed to dequeue job")
	assert.Equal(t, original.TaskID, dequeued.TaskID)
	assert.Equal(t, original.Query, dequeued.Query)
	assert.Equal(t, original.MaxResults, dequeued.MaxResults)
	assert.Assert(t, original.SubmittedAt.Equal(dequeued.SubmittedAt))

	depth, err = queue.GetQueueDepth(ctx)
	assert.NilError(t, err, "Failed to get queue depth after dequeue")
	assert.Equal(t, int64(0), depth, "Queue should be empty after dequeue")
}

func testQueueFIFOOrdering(t *testing.T, queue TaskQueue) {
	ctx := context.Background()

	jobs := []tasks.Job{
		newTestJob("task-1", "first"),
		newTestJob("task-2", "second"),
		newTestJob("task-3", "third"),
	}

	for _, job := range jobs {
		assert.NilError(t, queue.Enqueue(ctx, job), "Failed to enqueue job")
	}

	depth, err := queue.GetQueueDepth(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(3), depth, "Queue depth should be 3")

	for i, expected := range jobs {
		got, err := queue.Dequeue(ctx)
		assert.NilError(t, err, "Failed to dequeue job %d", i)
		assert.Equal(t, expected.TaskID, got.TaskID, "Job %d id mismatch", i)
		assert.Equal(t, expected.Query, got.Query, "Job %d query mismatch", i)
	}

	depth, err = queue.GetQueueDepth(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(0), depth, "Queue should be empty")
}

func testQueueConcurrency(t *testing.T, queue TaskQueue) {
	ctx := context.Background()
	numJobs := 10

	enqueueDone := make(chan struct{})
	go func() {
		defer close(enqueueDone)
		for i := 0; i < numJobs; i++ {
			err := queue.Enqueue(ctx, newTestJob(fmt.Sprintf("task-%d", i), "concurrent"))
			assert.Check(t, err == nil, "Failed to enqueue concurrent job %d: %v", i, err)
		}
	}()
	<-enqueueDone

	depth, err := queue.GetQueueDepth(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(numJobs), depth, "All jobs should be enqueued")

	results := make(chan tasks.Job, numJobs)
	errs := make(chan error, numJobs)
	for i := 0; i < numJobs; i++ {
		go func() {
			job, err := queue.Dequeue(ctx)
			if err != nil {
				errs <- err
				return
			}
			results <- job
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < numJobs; i++ {
		select {
		case job := <-results:
			seen[job.TaskID] = true
		case err := <-errs:
			t.Fatalf("Error during concurrent dequeue: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatalf("Timeout waiting for concurrent dequeue %d", i)
		}
	}

	assert.Equal(t, numJobs, len(seen), "Every job should be dequeued exactly once")

	depth, err = queue.GetQueueDepth(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(0), depth, "Queue should be empty after concurrent operations")
}

package store

import (
	"context"
	"errors"
	"fmt"

	"research-orchestrator/tasks"
)

var (
	// ErrTaskNotFound is returned for operations on an unknown id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskFinished is returned for mutations on a completed or failed task.
	ErrTaskFinished = errors.New("task already finished")
)

// DuplicateTaskError is returned by Create when the id is already taken.
type DuplicateTaskError struct {
	ID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task with ID %s already exists", e.ID)
}

// TaskStore defines the contract for task persistence.
//
// Mutations on an unknown id change nothing and return an error wrapping
// ErrTaskNotFound; callers running in the background log it and carry on.
type TaskStore interface {
	// Create inserts a pending task with zero progress.
	Create(ctx context.Context, id, query string) error
	// UpdateProgress raises progress and moves a pending task to running.
	UpdateProgress(ctx context.Context, id string, progress int) error
	// SetResult completes the task with progress 100.
	SetResult(ctx context.Context, id string, result *tasks.ResearchResult) error
	// SetError fails the task with a human-readable message.
	SetError(ctx context.Context, id, message string) error
	// Get returns a consistent copy of the task.
	Get(ctx context.Context, id string) (*tasks.Task, error)
}

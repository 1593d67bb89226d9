package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"research-orchestrator/tasks"
)

// Compile-time check to ensure MemoryTaskStore implements TaskStore interface
var _ TaskStore = (*MemoryTaskStore)(nil)

// progress 100 is reserved for SetResult
const maxRunningProgress = 99

type entry struct {
	mu   sync.Mutex
	task *tasks.Task
}

// MemoryTaskStore keeps tasks for the lifetime of the process.
// The map lock only guards membership; each task has its own mutex, so every
// operation on one id is serialized while different ids proceed independently.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryTaskStore creates and initializes a new MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		entries: make(map[string]*entry),
	}
}

func (s *MemoryTaskStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("task with ID %s not found: %w", id, ErrTaskNotFound)
	}
	return e, nil
}

// Create adds a new pending task. Duplicate ids are rejected and the stored task is left untouched.
func (s *MemoryTaskStore) Create(_ context.Context, id, query string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return &DuplicateTaskError{ID: id}
	}

	s.entries[id] = &entry{task: tasks.NewTask(id, query)}
	return nil
}

// UpdateProgress never lowers progress and caps it below 100 until SetResult.
func (s *MemoryTaskStore) UpdateProgress(_ context.Context, id string, progress int) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	task := e.task
	if task.Status.IsFinal() {
		return fmt.Errorf("update progress of task %s (%s): %w", id, task.Status, ErrTaskFinished)
	}

	if task.Status == tasks.StatusPending {
		if err := task.SetStatus(tasks.StatusRunning); err != nil {
			return err
		}
	}

	progress = min(max(progress, 0), maxRunningProgress)
	if progress > task.Progress {
		task.Progress = progress
	}
	task.UpdatedAt = time.Now().UTC()

	return nil
}

// SetResult transitions the task to completed.
func (s *MemoryTaskStore) SetResult(_ context.Context, id string, result *tasks.ResearchResult) error {
	if result == nil {
		return fmt.Errorf("set result of task %s: result cannot be nil", id)
	}

	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	task := e.task
	if task.Status.IsFinal() {
		return fmt.Errorf("set result of task %s (%s): %w", id, task.Status, ErrTaskFinished)
	}
	if err := task.SetStatus(tasks.StatusCompleted); err != nil {
		return err
	}

	task.Progress = 100
	task.Result = result.Clone()
	task.Error = ""
	return nil
}

// SetError transitions the task to failed. Progress is left where the run stopped.
func (s *MemoryTaskStore) SetError(_ context.Context, id, message string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	task := e.task
	if task.Status.IsFinal() {
		return fmt.Errorf("set error of task %s (%s): %w", id, task.Status, ErrTaskFinished)
	}
	if err := task.SetStatus(tasks.StatusFailed); err != nil {
		return err
	}

	if strings.TrimSpace(message) == "" {
		message = "research task failed"
	}
	task.Error = message
	task.Result = nil
	return nil
}

// Get retrieves a task by its ID.
// It returns a deep copy so callers can never observe or cause a partial update.
func (s *MemoryTaskStore) Get(_ context.Context, id string) (*tasks.Task, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.task.Clone(), nil
}

// Counts returns the number of stored tasks per status.
func (s *MemoryTaskStore) Counts() map[tasks.TaskStatus]int {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	counts := map[tasks.TaskStatus]int{
		tasks.StatusPending:   0,
		tasks.StatusRunning:   0,
		tasks.StatusCompleted: 0,
		tasks.StatusFailed:    0,
	}
	for _, e := range entries {
		e.mu.Lock()
		counts[e.task.Status]++
		e.mu.Unlock()
	}
	return counts
}

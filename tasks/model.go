package tasks

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a research task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

func (s TaskStatus) String() string {
	return string(s)
}

// IsFinal reports whether no further transitions are allowed.
func (s TaskStatus) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var validTransitions = map[TaskStatus][]TaskStatus{
	StatusPending: {StatusRunning, StatusCompleted, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

func (s TaskStatus) canTransitionTo(next TaskStatus) error {
	switch s {
	case StatusPending, StatusRunning:
	case StatusCompleted, StatusFailed:
		return fmt.Errorf("invalid transition from %s to %s: %s is terminal", s, next, s)
	default:
		return fmt.Errorf("unknown current status: %s", s)
	}

	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", s, next)
}

// Source is a page whose extracted text contributed to the result.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ResearchResult is the packaged output of a completed task.
type ResearchResult struct {
	Topic     string   `json:"topic"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Sources   []Source `json:"sources"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (r *ResearchResult) Clone() *ResearchResult {
	if r == nil {
		return nil
	}
	out := &ResearchResult{
		Topic:     r.Topic,
		Summary:   r.Summary,
		KeyPoints: make([]string, len(r.KeyPoints)),
		Sources:   make([]Source, len(r.Sources)),
	}
	copy(out.KeyPoints, r.KeyPoints)
	copy(out.Sources, r.Sources)
	return out
}

// Task is the stored lifecycle record of one research request.
// Result is set iff Status is completed; Error is set iff Status is failed.
type Task struct {
	ID        string          `json:"task_id"`
	Query     string          `json:"query"`
	Status    TaskStatus      `json:"status"`
	Progress  int             `json:"progress"`
	Result    *ResearchResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewTask creates a task in the pending state with zero progress.
func NewTask(id, query string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        id,
		Query:     query,
		Status:    StatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus moves the task to next if the transition is allowed.
func (t *Task) SetStatus(next TaskStatus) error {
	if err := t.Status.canTransitionTo(next); err != nil {
		return err
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Result = t.Result.Clone()
	return &out
}

// Job is what the submission boundary hands to a runner.
type Job struct {
	TaskID      string    `json:"task_id"`
	Query       string    `json:"query"`
	MaxResults  int       `json:"max_results"`
	SubmittedAt time.Time `json:"submitted_at"`
}

const (
	DefaultMaxResults = 5
	MinMaxResults     = 1
	MaxMaxResults     = 10
)

// NormalizeMaxResults replaces a non-positive value with def and caps the
// result at MaxMaxResults.
func NormalizeMaxResults(n, def int) int {
	if def < MinMaxResults || def > MaxMaxResults {
		def = DefaultMaxResults
	}
	if n < MinMaxResults {
		return def
	}
	return min(n, MaxMaxResults)
}

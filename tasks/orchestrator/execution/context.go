package execution

import (
	"fmt"
	"time"

	"research-orchestrator/tasks"
	"research-orchestrator/tasks/pipeline"
)

// ExecutionContext tracks one run of the research pipeline for logging and
// failure reporting.
type ExecutionContext struct {
	TaskID     string
	Query      string
	MaxResults int
	Path       pipeline.Path
	Error      error
	StartTime  time.Time
	EndTime    time.Time
	Metadata   map[string]any
}

// NewExecutionContext starts tracking a run of job.
func NewExecutionContext(job tasks.Job) *ExecutionContext {
	return &ExecutionContext{
		TaskID:     job.TaskID,
		Query:      job.Query,
		MaxResults: job.MaxResults,
		StartTime:  time.Now(),
		Metadata:   make(map[string]any),
	}
}

// SetPath records the chosen pipeline variant.
func (ctx *ExecutionContext) SetPath(path pipeline.Path) {
	ctx.Path = path
	ctx.Metadata["path"] = path.String()
}

// AddSkipped records a URL that a step gave up on.
func (ctx *ExecutionContext) AddSkipped(item string) {
	skipped, _ := ctx.Metadata["skipped_urls"].([]string)
	ctx.Metadata["skipped_urls"] = append(skipped, item)
}

// Skipped returns the items recorded with AddSkipped.
func (ctx *ExecutionContext) Skipped() []string {
	skipped, _ := ctx.Metadata["skipped_urls"].([]string)
	return skipped
}

// SetError captures the failure that ended the run.
func (ctx *ExecutionContext) SetError(err error) {
	ctx.Error = err
	ctx.EndTime = time.Now()
	ctx.Metadata["has_error"] = true
	ctx.Metadata["error_type"] = fmt.Sprintf("%T", err)
}

// SetSuccess marks successful completion.
func (ctx *ExecutionContext) SetSuccess() {
	ctx.EndTime = time.Now()
	ctx.Metadata["has_error"] = false
}

func (ctx *ExecutionContext) IsSuccess() bool {
	return ctx.Error == nil
}

// Duration is the elapsed time so far, or the total once the run ended.
func (ctx *ExecutionContext) Duration() time.Duration {
	if ctx.EndTime.IsZero() {
		return time.Since(ctx.StartTime)
	}
	return ctx.EndTime.Sub(ctx.StartTime)
}

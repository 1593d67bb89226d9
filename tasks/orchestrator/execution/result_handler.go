package execution

import (
	"fmt"

	"research-orchestrator/errors"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/pipeline"
)

// ResultHandler turns a finished run into what gets stored.
type ResultHandler interface {
	HandleSuccess(ctx *ExecutionContext, state *pipeline.State) (*tasks.ResearchResult, error)
	HandleFailure(ctx *ExecutionContext) string
}

// DefaultResultHandler stores the formatted result and a message-only error.
type DefaultResultHandler struct{}

var _ ResultHandler = (*DefaultResultHandler)(nil)

func NewDefaultResultHandler() *DefaultResultHandler {
	return &DefaultResultHandler{}
}

// HandleSuccess returns the packaged result built by the format step.
func (h *DefaultResultHandler) HandleSuccess(ctx *ExecutionContext, state *pipeline.State) (*tasks.ResearchResult, error) {
	if state == nil || state.Final == nil {
		return nil, errors.NewInternalError("pipeline finished without a result")
	}
	ctx.SetSuccess()
	return state.Final.Clone(), nil
}

// HandleFailure renders the human-readable message recorded on the task.
func (h *DefaultResultHandler) HandleFailure(ctx *ExecutionContext) string {
	if ctx.IsSuccess() {
		return "research task failed"
	}
	if taskErr, ok := errors.IsTaskError(ctx.Error); ok {
		return fmt.Sprintf("%s error: %s", taskErr.Type, taskErr.Message)
	}
	return ctx.Error.Error()
}

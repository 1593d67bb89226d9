package execution

import (
	"errors"
	"testing"

	taskErrors "research-orchestrator/errors"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResultHandler_HandleSuccess(t *testing.T) {
	handler := NewDefaultResultHandler()
	ctx := NewExecutionContext(testJob("q"))

	state := pipeline.NewState("q", 3)
	state.Final = &tasks.ResearchResult{Topic: "q", Summary: "s", KeyPoints: []string{"k"}}

	result, err := handler.HandleSuccess(ctx, state)

	require.NoError(t, err)
	assert.True(t, ctx.IsSuccess())
	assert.False(t, ctx.Metadata["has_error"].(bool))
	assert.Equal(t, "q", result.Topic)
	assert.NotSame(t, state.Final, result)
}

func TestDefaultResultHandler_HandleSuccess_MissingFinal(t *testing.T) {
	handler := NewDefaultResultHandler()
	ctx := NewExecutionContext(testJob("q"))

	result, err := handler.HandleSuccess(ctx, pipeline.NewState("q", 3))

	assert.Nil(t, result)
	taskErr, ok := taskErrors.IsTaskError(err)
	require.True(t, ok)
	assert.Equal(t, taskErrors.InternalError, taskErr.Type)
}

func TestDefaultResultHandler_HandleFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error is kept verbatim", errors.New("search failed (duckduckgo): no results found"), "search failed (duckduckgo): no results found"},
		{"task error shows type and message", taskErrors.NewValidationError("query cannot be empty"), "validation error: query cannot be empty"},
		{"no error falls back", nil, "research task failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewDefaultResultHandler()
			ctx := NewExecutionContext(testJob("q"))
			if tt.err != nil {
				ctx.SetError(tt.err)
			}

			assert.Equal(t, tt.want, handler.HandleFailure(ctx))
		})
	}
}

package api

import (
	"net/http"
	"strings"

	"research-orchestrator/errors"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/orchestrator"
)

// TaskStatusResponse is the polling view of a research task. Every state
// carries both result and error; the unset one is null.
type TaskStatusResponse struct {
	TaskID   string                `json:"task_id"`
	Status   string                `json:"status"`
	Progress int                   `json:"progress"`
	Query    string                `json:"query"`
	Result   *tasks.ResearchResult `json:"result"`
	Error    *string               `json:"error"`
}

func newTaskStatusResponse(task *tasks.Task) TaskStatusResponse {
	resp := TaskStatusResponse{
		TaskID:   task.ID,
		Status:   task.Status.String(),
		Progress: task.Progress,
		Query:    task.Query,
		Result:   task.Result,
	}
	if task.Error != "" {
		msg := task.Error
		resp.Error = &msg
	}
	return resp
}

// NewTaskStatusHandler serves GET /research/{task_id}.
func NewTaskStatusHandler(orch orchestrator.Orchestrator, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondWithError(w, errors.NewValidationError("method not allowed"), lg)
			return
		}

		taskID := strings.TrimSpace(r.PathValue("task_id"))
		if taskID == "" {
			respondWithError(w, errors.NewValidationError("task ID is required"), lg)
			return
		}

		lg.Debug("task status request", map[string]any{
			"task_id": taskID,
		})

		task, err := orch.GetTask(r.Context(), taskID)
		if err != nil {
			respondWithErr(w, err, lg)
			return
		}

		writeJSON(w, http.StatusOK, newTaskStatusResponse(task), lg)
	}
}

package api

import (
	stdErrors "errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"research-orchestrator/errors"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/orchestrator"

	"github.com/go-json-experiment/json"
)

const (
	maxBodySize    = 1024 * 1024 // 1 MB
	minQueryLength = 3
	maxQueryLength = 1000
)

// SubmitRequest is the body of POST /research.
type SubmitRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results,omitempty"`
}

// SubmitResponse acknowledges an accepted research task.
type SubmitResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewSubmitHandler returns an HTTP handler that accepts research queries.
//
// The handler returns 202 as soon as the task is created and dispatched; the
// pipeline itself runs in the background and is observed through the status
// endpoint.
func NewSubmitHandler(orch orchestrator.Orchestrator, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondWithError(w, errors.NewValidationError("method not allowed"), lg)
			return
		}

		// Limit request body size - this will cause decoding to fail if exceeded
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		var req SubmitRequest
		if err := json.UnmarshalRead(r.Body, &req); err != nil {
			var maxErr *http.MaxBytesError
			if stdErrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
				respondWithError(w, errors.NewValidationError("request body too large", map[string]any{
					"max_size_bytes": maxBodySize,
				}), lg)
				return
			}

			respondWithError(w, errors.NewValidationError("invalid JSON payload", map[string]any{
				"error": err.Error(),
			}), lg)
			return
		}

		if taskErr := req.validate(); taskErr != nil {
			respondWithError(w, taskErr, lg)
			return
		}

		maxResults := 0
		if req.MaxResults != nil {
			maxResults = *req.MaxResults
		}

		task, err := orch.SubmitResearch(r.Context(), req.Query, maxResults)
		if err != nil {
			respondWithErr(w, err, lg)
			return
		}

		writeJSON(w, http.StatusAccepted, SubmitResponse{
			TaskID:  task.ID,
			Status:  "started",
			Message: "Research task has been created.",
		}, lg)
	}
}

func (req *SubmitRequest) validate() *errors.TaskError {
	req.Query = strings.TrimSpace(req.Query)
	length := utf8.RuneCountInString(req.Query)

	if length < minQueryLength {
		return errors.NewValidationError("query must be at least 3 characters long", map[string]any{
			"min_length":    minQueryLength,
			"actual_length": length,
		})
	}
	if length > maxQueryLength {
		return errors.NewValidationError("query too long", map[string]any{
			"max_length":    maxQueryLength,
			"actual_length": length,
		})
	}

	if req.MaxResults != nil {
		n := *req.MaxResults
		if n < tasks.MinMaxResults || n > tasks.MaxMaxResults {
			return errors.NewValidationError("max_results must be between 1 and 10", map[string]any{
				"min":    tasks.MinMaxResults,
				"max":    tasks.MaxMaxResults,
				"actual": n,
			})
		}
	}

	return nil
}

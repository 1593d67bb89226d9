package api

import (
	"context"
	"net/http"
	"time"

	"research-orchestrator/config"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/pipeline"
)

var startTime = time.Now()

// TaskCounter reports how many tasks are in each status.
type TaskCounter interface {
	Counts() map[tasks.TaskStatus]int
}

// QueueInspector reports the number of jobs waiting for a worker.
type QueueInspector interface {
	QueueDepth(ctx context.Context) (int64, error)
}

// HealthResponse provides detailed health information
type HealthResponse struct {
	Status       string         `json:"status"`
	Timestamp    string         `json:"timestamp"`
	Uptime       string         `json:"uptime"`
	Version      string         `json:"version,omitempty"`
	DispatchMode string         `json:"dispatch_mode"`
	Paths        []string       `json:"paths"`
	Tasks        map[string]int `json:"tasks,omitempty"`
	QueueDepth   *int64         `json:"queue_depth,omitempty"`
}

// NewHealthHandler returns a health check handler. counter and queue may be nil.
func NewHealthHandler(cfg *config.Config, counter TaskCounter, queue QueueInspector, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		paths := pipeline.Paths()
		response := HealthResponse{
			Status:       "healthy",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Version:      cfg.Version,
			DispatchMode: cfg.DispatchMode(),
			Paths:        make([]string, len(paths)),
		}
		for i, p := range paths {
			response.Paths[i] = p.String()
		}

		if counter != nil {
			response.Tasks = make(map[string]int)
			for status, n := range counter.Counts() {
				response.Tasks[status.String()] = n
			}
		}

		if queue != nil {
			depth, err := queue.QueueDepth(r.Context())
			if err != nil {
				lg.Warn("failed to read queue depth", map[string]any{
					"error": err.Error(),
				})
				response.Status = "degraded"
			} else {
				response.QueueDepth = &depth
			}
		}

		writeJSON(w, http.StatusOK, response, lg)
	}
}

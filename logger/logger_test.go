package logger_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"research-orchestrator/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("WARN", &buf)

	lg.Debug("debug message")
	lg.Info("info message")
	lg.Warn("warn message")
	lg.Error("error message", map[string]any{"error": "boom"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "warn message", entries[0]["message"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "boom", entries[1]["error"])
	assert.NotEmpty(t, entries[1]["time"])
}

func TestLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("verbose", &buf)

	lg.Debug("hidden")
	lg.Info("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
	assert.False(t, lg.Enabled(logger.DEBUG))
	assert.True(t, lg.Enabled(logger.INFO))
}

func TestLogger_Task(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("DEBUG", &buf)

	lg.Task("task-1", "pipeline step finished", map[string]any{"step": "search"})
	lg.TaskWarn("task-1", "extraction skipped url", map[string]any{"url": "https://example.com"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "task-1", entries[0]["task_id"])
	assert.Equal(t, "task", entries[0]["type"])
	assert.Equal(t, "search", entries[0]["step"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "warn", entries[1]["level"])
	assert.Equal(t, "https://example.com", entries[1]["url"])
}

func TestLogger_HTTP(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("INFO", &buf)

	lg.HTTP(http.MethodGet, "/research/abc", http.StatusOK, 15*time.Millisecond, map[string]any{
		"remote_addr": "127.0.0.1",
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "GET", entries[0]["http_method"])
	assert.Equal(t, "/research/abc", entries[0]["http_path"])
	assert.Equal(t, float64(http.StatusOK), entries[0]["http_status"])
	assert.Equal(t, "http_request", entries[0]["type"])
	assert.Equal(t, "127.0.0.1", entries[0]["remote_addr"])
}

func TestLogger_NopAndNil(t *testing.T) {
	lg := logger.Nop()
	lg.Error("discarded")

	var nilLogger *logger.Logger
	assert.NotPanics(t, func() { nilLogger.Info("nothing") })
}

func TestLogger_ConcurrentWritesShareBuffer(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("DEBUG", &buf)

	const goroutines, perGoroutine = 8, 50
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				lg.Task("task-concurrent", "step finished", map[string]any{
					"worker_id": worker,
					"seq":       i,
				})
			}
		}(g)
	}
	wg.Wait()

	entries := decodeLines(t, &buf)
	assert.Len(t, entries, goroutines*perGoroutine)
	for _, entry := range entries {
		assert.Equal(t, "task-concurrent", entry["task_id"])
	}
}

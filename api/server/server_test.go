package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"research-orchestrator/api"
	"research-orchestrator/config"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/orchestrator"
	"research-orchestrator/tasks/orchestrator/execution"
	"research-orchestrator/tasks/pipeline"
	"research-orchestrator/tasks/runners"
	"research-orchestrator/tasks/store"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"
)

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, query string, count int) ([]pipeline.SearchResult, error) {
	results := []pipeline.SearchResult{
		{Title: "Overview", URL: "https://a.example", Snippet: "about " + query},
		{Title: "Details", URL: "https://b.example", Snippet: "more on " + query},
	}
	return results[:min(count, len(results))], nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, url string) (string, error) {
	return "page text from " + url, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string) (pipeline.Summary, error) {
	return pipeline.Summary{Text: "a short summary", KeyPoints: []string{"one", "two"}}, nil
}

type stubProvider struct{}

func (stubProvider) Acquire(context.Context) (*pipeline.Toolset, error) {
	return pipeline.NewToolset(stubSearcher{}, stubExtractor{}, stubSummarizer{}, nil), nil
}

type testEnv struct {
	deps   Dependencies
	runner *runners.BackgroundRunner
	store  *store.MemoryTaskStore
}

func newTestEnv() *testEnv {
	lg := logger.New("DEBUG", &bytes.Buffer{})
	cfg := &config.Config{
		ServerPort:      8080,
		Version:         "test",
		ShutdownTimeout: 2 * time.Second,
	}

	taskStore := store.NewMemoryTaskStore()
	workflow := execution.NewDefaultExecutionWorkflow(
		stubProvider{},
		execution.NewDefaultStateManager(taskStore, lg),
		execution.NewDefaultResultHandler(),
		lg,
	)
	runner := runners.NewBackgroundRunner(workflow, time.Minute, lg)

	return &testEnv{
		deps: Dependencies{
			Orchestrator: orchestrator.NewOrchestrator(taskStore, runner, 5, lg),
			Counter:      taskStore,
			Config:       cfg,
			Logger:       lg,
		},
		runner: runner,
		store:  taskStore,
	}
}

func TestRouter_SubmitAndPoll(t *testing.T) {
	env := newTestEnv()
	srv := httptest.NewServer(NewRouter(env.deps))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/research", "application/json",
		strings.NewReader(`{"query":"global impact of renewable energy adoption on economies","max_results":2}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted api.SubmitResponse
	require.NoError(t, json.UnmarshalRead(resp.Body, &submitted))
	assert.Equal(t, "started", submitted.Status)
	require.NotEmpty(t, submitted.TaskID)

	require.NoError(t, env.runner.Wait(context.Background()))

	statusResp, err := http.Get(srv.URL + "/research/" + submitted.TaskID)
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status api.TaskStatusResponse
	require.NoError(t, json.UnmarshalRead(statusResp.Body, &status))
	assert.Equal(t, tasks.StatusCompleted.String(), status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.Result)
	assert.Equal(t, "global impact of renewable energy adoption on economies", status.Result.Topic)
	assert.Equal(t, 2, len(status.Result.Sources))
}

func TestRouter_Routes(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.deps)

	testCases := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"unknown task", http.MethodGet, "/research/nope", http.StatusNotFound},
		{"submit wrong method", http.MethodPut, "/research", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/tasks", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.wantCode, rr.Code)
		})
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	env := newTestEnv()

	var drained atomic.Bool
	srv := New(env.deps, DrainFunc(func(ctx context.Context) error {
		drained.Store(true)
		return env.runner.Wait(ctx)
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Assert(t, drained.Load())
}

func TestServer_DrainErrorsAreReturned(t *testing.T) {
	env := newTestEnv()
	drainErr := errors.New("pool still busy")
	srv := New(env.deps, DrainFunc(func(context.Context) error { return drainErr }))

	err := srv.shutdown()
	assert.Assert(t, errors.Is(err, drainErr))
}

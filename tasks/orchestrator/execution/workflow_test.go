package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"research-orchestrator/logger"
	"research-orchestrator/tasks"
	"research-orchestrator/tasks/pipeline"
	"research-orchestrator/tasks/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []pipeline.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, count int) ([]pipeline.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[:min(count, len(f.results))], nil
}

type fakeExtractor struct {
	failing map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (string, error) {
	if f.failing[url] {
		return "", fmt.Errorf("extraction failed for %s", url)
	}
	return "text of " + url, nil
}

type fakeSummarizer struct {
	err   error
	panic bool
	input string
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (pipeline.Summary, error) {
	if f.panic {
		panic("summarizer exploded")
	}
	f.input = text
	if f.err != nil {
		return pipeline.Summary{}, f.err
	}
	return pipeline.Summary{Text: "summary", KeyPoints: []string{"a", "b"}}, nil
}

type fakeProvider struct {
	searcher   *fakeSearcher
	extractor  *fakeExtractor
	summarizer *fakeSummarizer
	err        error
	panic      bool
	acquired   atomic.Int32
	released   atomic.Int32
}

func (p *fakeProvider) Acquire(context.Context) (*pipeline.Toolset, error) {
	if p.panic {
		panic("transport pool exhausted")
	}
	if p.err != nil {
		return nil, p.err
	}
	p.acquired.Add(1)
	return pipeline.NewToolset(p.searcher, p.extractor, p.summarizer, func() error {
		p.released.Add(1)
		return nil
	}), nil
}

func threeResults() []pipeline.SearchResult {
	return []pipeline.SearchResult{
		{Title: "A", URL: "https://a.example", Snippet: "sa"},
		{Title: "B", URL: "https://b.example", Snippet: "sb"},
		{Title: "C", URL: "https://c.example", Snippet: "sc"},
	}
}

// progressRecorder wraps the default state manager and records reported progress.
type progressRecorder struct {
	*DefaultStateManager
	mu       sync.Mutex
	reported []int
}

func (r *progressRecorder) ReportProgress(ctx context.Context, execCtx *ExecutionContext, progress int) error {
	r.mu.Lock()
	r.reported = append(r.reported, progress)
	r.mu.Unlock()
	return r.DefaultStateManager.ReportProgress(ctx, execCtx, progress)
}

func newWorkflowFixture(t *testing.T, provider *fakeProvider, query string) (*DefaultExecutionWorkflow, *store.MemoryTaskStore, *progressRecorder, tasks.Job) {
	t.Helper()
	var buf bytes.Buffer
	lg := logger.New("DEBUG", &buf)

	s := store.NewMemoryTaskStore()
	job := tasks.Job{TaskID: "task-1", Query: query, MaxResults: 5}
	require.NoError(t, s.Create(context.Background(), job.TaskID, job.Query))

	recorder := &progressRecorder{DefaultStateManager: NewDefaultStateManager(s, lg)}
	wf := NewDefaultExecutionWorkflow(provider, recorder, NewDefaultResultHandler(), lg)
	return wf, s, recorder, job
}

func TestWorkflow_Execute_ComplexPath(t *testing.T) {
	provider := &fakeProvider{
		searcher:   &fakeSearcher{results: threeResults()},
		extractor:  &fakeExtractor{failing: map[string]bool{"https://b.example": true}},
		summarizer: &fakeSummarizer{},
	}
	wf, s, recorder, job := newWorkflowFixture(t, provider, "impact of AI on global economy")

	err := wf.Execute(context.Background(), job)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Empty(t, got.Error)

	want := &tasks.ResearchResult{
		Topic:     "impact of AI on global economy",
		Summary:   "summary",
		KeyPoints: []string{"a", "b"},
		Sources: []tasks.Source{
			{URL: "https://a.example", Title: "A"},
			{URL: "https://c.example", Title: "C"},
		},
	}
	if diff := cmp.Diff(want, got.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []int{5, 20, 45, 80, 100}, recorder.reported)
	assert.Equal(t, "text of https://a.example\n\ntext of https://c.example", provider.summarizer.input)
	assert.Equal(t, int32(1), provider.acquired.Load())
	assert.Equal(t, int32(1), provider.released.Load())
}

func TestWorkflow_Execute_SimplePath(t *testing.T) {
	provider := &fakeProvider{
		searcher:   &fakeSearcher{results: threeResults()},
		extractor:  &fakeExtractor{},
		summarizer: &fakeSummarizer{},
	}
	wf, s, recorder, job := newWorkflowFixture(t, provider, "What is AI?")

	require.NoError(t, wf.Execute(context.Background(), job))

	got, err := s.Get(context.Background(), job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusCompleted, got.Status)
	assert.Empty(t, got.Result.Sources)
	assert.Equal(t, []int{5, 20, 80, 100}, recorder.reported)
	assert.Equal(t, "sa\nsb\nsc", provider.summarizer.input)
}

func TestWorkflow_Execute_FatalFailures(t *testing.T) {
	tests := []struct {
		name         string
		provider     *fakeProvider
		query        string
		wantError    string
		wantProgress int
		wantReleased int32
	}{
		{
			name: "search failure",
			provider: &fakeProvider{
				searcher:   &fakeSearcher{err: errors.New("search failed (bing): unexpected status 503")},
				extractor:  &fakeExtractor{},
				summarizer: &fakeSummarizer{},
			},
			query:        "What is AI?",
			wantError:    "search failed (bing): unexpected status 503",
			wantProgress: 5,
			wantReleased: 1,
		},
		{
			name: "summarize failure",
			provider: &fakeProvider{
				searcher:   &fakeSearcher{results: threeResults()},
				extractor:  &fakeExtractor{},
				summarizer: &fakeSummarizer{err: errors.New("summarization failed: ollama: connection refused")},
			},
			query:        "impact of AI on global economy",
			wantError:    "summarization failed: ollama: connection refused",
			wantProgress: 45,
			wantReleased: 1,
		},
		{
			name: "panicking step",
			provider: &fakeProvider{
				searcher:   &fakeSearcher{results: threeResults()},
				extractor:  &fakeExtractor{},
				summarizer: &fakeSummarizer{panic: true},
			},
			query:        "What is AI?",
			wantError:    "internal error: step summarize panicked: summarizer exploded",
			wantProgress: 20,
			wantReleased: 1,
		},
		{
			name:         "tool acquisition failure",
			provider:     &fakeProvider{err: errors.New("no transport")},
			query:        "What is AI?",
			wantError:    "acquire tools: no transport",
			wantProgress: 5,
			wantReleased: 0,
		},
		{
			name:         "panicking tool acquisition",
			provider:     &fakeProvider{panic: true},
			query:        "What is AI?",
			wantError:    "internal error: research run panicked: transport pool exhausted",
			wantProgress: 5,
			wantReleased: 0,
		},
		{
			name:         "blank query",
			provider:     &fakeProvider{},
			query:        "   ",
			wantError:    "validation error: query cannot be empty",
			wantProgress: 0,
			wantReleased: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, s, _, job := newWorkflowFixture(t, tt.provider, tt.query)

			err := wf.Execute(context.Background(), job)
			require.Error(t, err)

			got, getErr := s.Get(context.Background(), job.TaskID)
			require.NoError(t, getErr)
			assert.Equal(t, tasks.StatusFailed, got.Status)
			assert.Equal(t, tt.wantError, got.Error)
			assert.Nil(t, got.Result)
			assert.Equal(t, tt.wantProgress, got.Progress)
			assert.Equal(t, tt.wantReleased, tt.provider.released.Load())
		})
	}
}

func TestWorkflow_Execute_MissingTaskDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("DEBUG", &buf)
	s := store.NewMemoryTaskStore()

	provider := &fakeProvider{
		searcher:   &fakeSearcher{results: threeResults()},
		extractor:  &fakeExtractor{},
		summarizer: &fakeSummarizer{},
	}
	wf := NewDefaultExecutionWorkflow(provider, NewDefaultStateManager(s, lg), NewDefaultResultHandler(), lg)

	err := wf.Execute(context.Background(), tasks.Job{TaskID: "ghost", Query: "What is AI?", MaxResults: 3})

	assert.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "failed to store task result"))
}

// MockStateManager for testing
type MockStateManager struct {
	mock.Mock
}

func (m *MockStateManager) ReportProgress(ctx context.Context, execCtx *ExecutionContext, progress int) error {
	args := m.Called(ctx, execCtx, progress)
	return args.Error(0)
}

func (m *MockStateManager) TransitionToCompleted(ctx context.Context, execCtx *ExecutionContext, result *tasks.ResearchResult) error {
	args := m.Called(ctx, execCtx, result)
	return args.Error(0)
}

func (m *MockStateManager) TransitionToFailed(ctx context.Context, execCtx *ExecutionContext, message string) error {
	args := m.Called(ctx, execCtx, message)
	return args.Error(0)
}

func TestWorkflow_Execute_StateManagerErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New("DEBUG", &buf)
	sm := &MockStateManager{}

	provider := &fakeProvider{
		searcher:   &fakeSearcher{results: threeResults()},
		extractor:  &fakeExtractor{},
		summarizer: &fakeSummarizer{},
	}
	wf := NewDefaultExecutionWorkflow(provider, sm, NewDefaultResultHandler(), lg)

	ctx := context.Background()
	sm.On("ReportProgress", ctx, mock.AnythingOfType("*execution.ExecutionContext"), mock.AnythingOfType("int")).Return(errors.New("progress down"))
	sm.On("TransitionToCompleted", ctx, mock.AnythingOfType("*execution.ExecutionContext"), mock.AnythingOfType("*tasks.ResearchResult")).Return(errors.New("complete down"))

	err := wf.Execute(ctx, tasks.Job{TaskID: "task-1", Query: "What is AI?", MaxResults: 3})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "failed to report progress")
	assert.Contains(t, buf.String(), "failed to transition task to completed state")
	sm.AssertNumberOfCalls(t, "ReportProgress", 4)
	sm.AssertExpectations(t)
}

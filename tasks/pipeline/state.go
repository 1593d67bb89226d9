package pipeline

import "research-orchestrator/tasks"

// SearchResult is one hit returned by the search capability.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// State is the working set of a single run. It is owned by that run and
// flows forward through the steps; nothing else holds a reference to it.
type State struct {
	Query          string
	MaxResults     int
	SearchResults  []SearchResult
	ExtractedTexts []string
	Sources        []tasks.Source
	Summary        string
	KeyPoints      []string
	Final          *tasks.ResearchResult
}

// NewState seeds the state for a run.
func NewState(query string, maxResults int) *State {
	return &State{
		Query:      query,
		MaxResults: maxResults,
	}
}

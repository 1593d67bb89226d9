package pipeline

import (
	"context"
	"errors"
)

// Searcher returns up to count results for query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// Extractor fetches the readable text of a page.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Summary is what the summarization capability produces.
type Summary struct {
	Text      string
	KeyPoints []string
}

// Summarizer condenses text into a summary and key points.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (Summary, error)
}

// Toolset is the capability bundle for exactly one run.
type Toolset struct {
	Searcher   Searcher
	Extractor  Extractor
	Summarizer Summarizer

	release func() error
}

// NewToolset bundles capabilities. release runs once on Close and may be nil.
func NewToolset(s Searcher, e Extractor, sum Summarizer, release func() error) *Toolset {
	return &Toolset{
		Searcher:   s,
		Extractor:  e,
		Summarizer: sum,
		release:    release,
	}
}

// Close releases run-scoped resources. Safe to call more than once.
func (t *Toolset) Close() error {
	if t == nil || t.release == nil {
		return nil
	}
	release := t.release
	t.release = nil
	return release()
}

// ToolProvider builds a fresh Toolset for each run.
type ToolProvider interface {
	Acquire(ctx context.Context) (*Toolset, error)
}

var errMissingCapability = errors.New("capability not configured")

package tools

import "fmt"

// SearchError is returned when the search capability gives up.
type SearchError struct {
	Provider string
	Err      error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed (%s): %v", e.Provider, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ExtractionError is returned for a single URL that could not be read.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SummarizationError is returned after every summarization provider failed.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// StatusError is an unexpected HTTP status from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

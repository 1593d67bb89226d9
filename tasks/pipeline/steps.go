package pipeline

import (
	"context"
	"fmt"
	"strings"

	"research-orchestrator/tasks"
)

const (
	// MaxExtractedInput caps the text sent to the summarizer on the complex path.
	MaxExtractedInput = 20000
	// MaxSnippetInput caps the text sent to the summarizer on the simple path.
	MaxSnippetInput = 5000
)

// SearchStep fills SearchResults. Any search failure is fatal.
func SearchStep(ctx context.Context, state *State, tools *Toolset) Outcome {
	if tools == nil || tools.Searcher == nil {
		return Fatal(fmt.Errorf("search: %w", errMissingCapability))
	}

	results, err := tools.Searcher.Search(ctx, state.Query, state.MaxResults)
	if err != nil {
		return Fatal(err)
	}
	if state.MaxResults > 0 && len(results) > state.MaxResults {
		results = results[:state.MaxResults]
	}

	state.SearchResults = results
	return OK(state)
}

// ExtractStep fetches every result URL. A failing URL is skipped and only
// successful pages land in ExtractedTexts and Sources.
func ExtractStep(ctx context.Context, state *State, tools *Toolset) Outcome {
	if tools == nil || tools.Extractor == nil {
		return Fatal(fmt.Errorf("extract: %w", errMissingCapability))
	}

	texts := make([]string, 0, len(state.SearchResults))
	sources := make([]tasks.Source, 0, len(state.SearchResults))
	var skipped []Skipped

	for _, result := range state.SearchResults {
		if result.URL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Fatal(fmt.Errorf("extract: %w", err))
		}

		text, err := tools.Extractor.Extract(ctx, result.URL)
		if err != nil {
			skipped = append(skipped, Skipped{Item: result.URL, Err: err})
			continue
		}

		texts = append(texts, text)
		sources = append(sources, tasks.Source{URL: result.URL, Title: result.Title})
	}

	state.ExtractedTexts = texts
	state.Sources = sources
	return SoftFailure(state, skipped...)
}

// SummaryInput assembles the summarizer input. Extracted page text wins;
// otherwise snippets (or titles when a snippet is empty) are used.
func SummaryInput(state *State) string {
	if len(state.ExtractedTexts) > 0 {
		return truncateRunes(strings.Join(state.ExtractedTexts, "\n\n"), MaxExtractedInput)
	}

	lines := make([]string, 0, len(state.SearchResults))
	for _, r := range state.SearchResults {
		if r.Snippet != "" {
			lines = append(lines, r.Snippet)
		} else {
			lines = append(lines, r.Title)
		}
	}
	return truncateRunes(strings.Join(lines, "\n"), MaxSnippetInput)
}

// SummarizeStep fills Summary and KeyPoints. Any failure is fatal.
func SummarizeStep(ctx context.Context, state *State, tools *Toolset) Outcome {
	if tools == nil || tools.Summarizer == nil {
		return Fatal(fmt.Errorf("summarize: %w", errMissingCapability))
	}

	summary, err := tools.Summarizer.Summarize(ctx, SummaryInput(state))
	if err != nil {
		return Fatal(err)
	}

	state.Summary = summary.Text
	state.KeyPoints = summary.KeyPoints
	return OK(state)
}

// FormatStep packages the final result. It never fails.
func FormatStep(_ context.Context, state *State, _ *Toolset) Outcome {
	keyPoints := make([]string, len(state.KeyPoints))
	copy(keyPoints, state.KeyPoints)
	sources := make([]tasks.Source, len(state.Sources))
	copy(sources, state.Sources)

	state.Final = &tasks.ResearchResult{
		Topic:     state.Query,
		Summary:   state.Summary,
		KeyPoints: keyPoints,
		Sources:   sources,
	}
	return OK(state)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

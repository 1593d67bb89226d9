package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"

	"research-orchestrator/tasks/pipeline"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultOllamaModel    = "llama3"
)

var errInvalidSummary = errors.New("model returned no usable summary")

const summaryPrompt = `Summarize the following text in 120-200 words and list 4-7 key points.

Return ONLY valid JSON matching this schema:
{"summary": "string", "key_points": ["point 1", "point 2"]}

Text:
%s`

// model is one LLM backend that turns a prompt into raw text.
type model interface {
	name() string
	generate(ctx context.Context, prompt string) (string, error)
}

var _ pipeline.Summarizer = (*ChainSummarizer)(nil)

// ChainSummarizer asks each model in order and returns the first usable
// summary. The whole chain is retried under the policy.
type ChainSummarizer struct {
	models []model
	retry  RetryPolicy
}

func newChainSummarizer(retry RetryPolicy, models ...model) *ChainSummarizer {
	if retry.Retryable == nil {
		retry.Retryable = func(err error) bool {
			return IsRetryable(err) || errors.Is(err, errInvalidSummary)
		}
	}
	return &ChainSummarizer{models: models, retry: retry}
}

// Summarize returns a SummarizationError when every model failed.
func (s *ChainSummarizer) Summarize(ctx context.Context, text string) (pipeline.Summary, error) {
	if len(s.models) == 0 {
		return pipeline.Summary{}, &SummarizationError{Err: errors.New("no summarization provider configured")}
	}
	if strings.TrimSpace(text) == "" {
		return pipeline.Summary{}, &SummarizationError{Err: errors.New("nothing to summarize")}
	}

	prompt := fmt.Sprintf(summaryPrompt, text)

	var summary pipeline.Summary
	err := s.retry.Do(ctx, "summarize", func(ctx context.Context) error {
		var errs []error
		for _, m := range s.models {
			raw, err := m.generate(ctx, prompt)
			if err == nil {
				summary, err = parseSummary(raw)
			}
			if err == nil {
				return nil
			}
			errs = append(errs, fmt.Errorf("%s: %w", m.name(), err))
			if ctx.Err() != nil {
				break
			}
		}
		return errors.Join(errs...)
	})
	if err != nil {
		return pipeline.Summary{}, &SummarizationError{Err: err}
	}
	return summary, nil
}

type summaryPayload struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// parseSummary decodes the JSON object between the first '{' and the last '}'.
func parseSummary(raw string) (pipeline.Summary, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return pipeline.Summary{}, fmt.Errorf("%w: no JSON object", errInvalidSummary)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return pipeline.Summary{}, fmt.Errorf("%w: %v", errInvalidSummary, err)
	}

	payload.Summary = strings.TrimSpace(payload.Summary)
	if payload.Summary == "" {
		return pipeline.Summary{}, fmt.Errorf("%w: empty summary", errInvalidSummary)
	}

	points := make([]string, 0, len(payload.KeyPoints))
	for _, p := range payload.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return pipeline.Summary{Text: payload.Summary, KeyPoints: points}, nil
}

// geminiModel calls the Gemini generateContent endpoint.
type geminiModel struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *geminiModel) name() string { return "gemini" }

func (g *geminiModel) generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.endpoint, "/"), url.PathEscape(g.model))
	header := http.Header{"X-Goog-Api-Key": {g.apiKey}}
	payload := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}

	var resp geminiResponse
	if err := postJSON(ctx, g.client, endpoint, header, payload, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty response", errInvalidSummary)
	}
	return b.String(), nil
}

// ollamaModel calls a local Ollama /api/generate endpoint.
type ollamaModel struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *ollamaModel) name() string { return "ollama" }

func (o *ollamaModel) generate(ctx context.Context, prompt string) (string, error) {
	endpoint := strings.TrimRight(o.baseURL, "/") + "/api/generate"
	payload := ollamaRequest{Model: o.model, Prompt: prompt, Stream: false}

	var resp ollamaResponse
	if err := postJSON(ctx, o.client, endpoint, nil, payload, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", fmt.Errorf("%w: empty response", errInvalidSummary)
	}
	return resp.Response, nil
}

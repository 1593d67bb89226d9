package tools

import (
	"context"
	"net/http"
	"time"

	"research-orchestrator/logger"
	"research-orchestrator/tasks/pipeline"
)

// Options configures the backends used by every Toolset.
// Empty endpoints fall back to the public defaults.
type Options struct {
	BingAPIKey         string
	BingEndpoint       string
	DuckDuckGoEndpoint string

	GeminiAPIKey   string
	GeminiEndpoint string
	GeminiModel    string

	OllamaURL   string
	OllamaModel string

	HTTPTimeout time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

var _ pipeline.ToolProvider = (*Provider)(nil)

// Provider hands out a fresh Toolset per run. Tools in a set share one
// HTTP transport that is torn down when the set is closed.
type Provider struct {
	opts   Options
	logger *logger.Logger
}

func NewProvider(opts Options, lg *logger.Logger) *Provider {
	if opts.GeminiModel == "" {
		opts.GeminiModel = DefaultGeminiModel
	}
	if opts.OllamaModel == "" {
		opts.OllamaModel = DefaultOllamaModel
	}
	if opts.GeminiEndpoint == "" {
		opts.GeminiEndpoint = DefaultGeminiEndpoint
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 20 * time.Second
	}
	return &Provider{opts: opts, logger: lg}
}

// SearchBackend names the search backend the provider will use.
func (p *Provider) SearchBackend() string {
	if p.opts.BingAPIKey != "" {
		return "bing"
	}
	return "duckduckgo"
}

// SummaryBackends lists the summarization models in the order they are tried.
func (p *Provider) SummaryBackends() []string {
	var names []string
	if p.opts.GeminiAPIKey != "" {
		names = append(names, "gemini")
	}
	if p.opts.OllamaURL != "" {
		names = append(names, "ollama")
	}
	return names
}

func (p *Provider) Acquire(ctx context.Context) (*pipeline.Toolset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transport := newTransport()
	client := &http.Client{Timeout: p.opts.HTTPTimeout, Transport: transport}
	retry := RetryPolicy{
		MaxAttempts: p.opts.MaxAttempts,
		Delay:       p.opts.RetryDelay,
		Logger:      p.logger,
	}

	var searcher pipeline.Searcher
	if p.opts.BingAPIKey != "" {
		searcher = NewBingSearcher(client, p.opts.BingEndpoint, p.opts.BingAPIKey, retry)
	} else {
		searcher = NewDuckDuckGoSearcher(client, p.opts.DuckDuckGoEndpoint, retry)
	}

	var models []model
	if p.opts.GeminiAPIKey != "" {
		models = append(models, &geminiModel{
			client:   client,
			endpoint: p.opts.GeminiEndpoint,
			model:    p.opts.GeminiModel,
			apiKey:   p.opts.GeminiAPIKey,
		})
	}
	if p.opts.OllamaURL != "" {
		models = append(models, &ollamaModel{
			client:  client,
			baseURL: p.opts.OllamaURL,
			model:   p.opts.OllamaModel,
		})
	}

	release := func() error {
		transport.CloseIdleConnections()
		return nil
	}

	return pipeline.NewToolset(
		searcher,
		NewHTMLExtractor(client, retry),
		newChainSummarizer(retry, models...),
		release,
	), nil
}

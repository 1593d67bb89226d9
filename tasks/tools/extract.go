package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/html"

	"research-orchestrator/tasks/pipeline"
)

var (
	errEmptyContent   = errors.New("no readable content")
	errUnsupportedURL = errors.New("unsupported URL")
)

var _ pipeline.Extractor = (*HTMLExtractor)(nil)

// HTMLExtractor downloads a page and returns its readable text.
type HTMLExtractor struct {
	client    *http.Client
	retry     RetryPolicy
	maxLength int
}

func NewHTMLExtractor(client *http.Client, retry RetryPolicy) *HTMLExtractor {
	return &HTMLExtractor{client: client, retry: retry, maxLength: MaxTextLength}
}

func (e *HTMLExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &ExtractionError{URL: rawURL, Err: errUnsupportedURL}
	}

	var text string
	err = e.retry.Do(ctx, "extract "+rawURL, func(ctx context.Context) error {
		var err error
		text, err = e.extract(ctx, u.String())
		return err
	})
	if err != nil {
		return "", &ExtractionError{URL: rawURL, Err: err}
	}
	return text, nil
}

func (e *HTMLExtractor) extract(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	body, err := fetch(e.client, req)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	text := ReadableText(doc)
	if text == "" {
		return "", errEmptyContent
	}
	return Truncate(text, e.maxLength), nil
}

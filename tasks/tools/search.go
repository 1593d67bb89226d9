package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"research-orchestrator/tasks/pipeline"
)

const (
	DefaultBingEndpoint       = "https://api.bing.microsoft.com/v7.0/search"
	DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
)

var errNoResults = errors.New("no results found")

var (
	_ pipeline.Searcher = (*BingSearcher)(nil)
	_ pipeline.Searcher = (*DuckDuckGoSearcher)(nil)
)

// BingSearcher queries the Bing Web Search API.
type BingSearcher struct {
	client   *http.Client
	endpoint string
	apiKey   string
	retry    RetryPolicy
}

func NewBingSearcher(client *http.Client, endpoint, apiKey string, retry RetryPolicy) *BingSearcher {
	if endpoint == "" {
		endpoint = DefaultBingEndpoint
	}
	return &BingSearcher{client: client, endpoint: endpoint, apiKey: apiKey, retry: retry}
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

func (s *BingSearcher) Search(ctx context.Context, query string, count int) ([]pipeline.SearchResult, error) {
	var results []pipeline.SearchResult
	err := s.retry.Do(ctx, "bing search", func(ctx context.Context) error {
		var err error
		results, err = s.search(ctx, query, count)
		return err
	})
	if err != nil {
		return nil, &SearchError{Provider: "bing", Err: err}
	}
	return results, nil
}

func (s *BingSearcher) search(ctx context.Context, query string, count int) ([]pipeline.SearchResult, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)

	body, err := fetch(s.client, req)
	if err != nil {
		return nil, err
	}

	var resp bingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]pipeline.SearchResult, 0, len(resp.WebPages.Value))
	for _, page := range resp.WebPages.Value {
		if len(results) == count {
			break
		}
		results = append(results, pipeline.SearchResult{
			Title:   CleanHTML(page.Name),
			URL:     page.URL,
			Snippet: CleanHTML(page.Snippet),
		})
	}
	return results, nil
}

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML endpoint. It needs no key.
type DuckDuckGoSearcher struct {
	client   *http.Client
	endpoint string
	retry    RetryPolicy
}

func NewDuckDuckGoSearcher(client *http.Client, endpoint string, retry RetryPolicy) *DuckDuckGoSearcher {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoEndpoint
	}
	return &DuckDuckGoSearcher{client: client, endpoint: endpoint, retry: retry}
}

func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, count int) ([]pipeline.SearchResult, error) {
	var results []pipeline.SearchResult
	err := s.retry.Do(ctx, "duckduckgo search", func(ctx context.Context) error {
		var err error
		results, err = s.search(ctx, query, count)
		return err
	})
	if err != nil {
		return nil, &SearchError{Provider: "duckduckgo", Err: err}
	}
	if len(results) == 0 {
		return nil, &SearchError{Provider: "duckduckgo", Err: errNoResults}
	}
	return results, nil
}

func (s *DuckDuckGoSearcher) search(ctx context.Context, query string, count int) ([]pipeline.SearchResult, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := fetch(s.client, req)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	return parseDuckDuckGoResults(doc, count), nil
}

// parseDuckDuckGoResults reads result__a anchors in document order and
// attaches the result__snippet that follows each one.
func parseDuckDuckGoResults(doc *html.Node, count int) []pipeline.SearchResult {
	var results []pipeline.SearchResult
	seen := make(map[string]bool)
	// index of the last accepted result still waiting for a snippet
	pending := -1

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.A && hasClass(n, "result__a"):
				pending = -1
				target := resolveDuckDuckGoLink(attr(n, "href"))
				if target != "" && !seen[target] {
					if len(results) == count {
						return false
					}
					seen[target] = true
					results = append(results, pipeline.SearchResult{
						Title: nodeText(n),
						URL:   target,
					})
					pending = len(results) - 1
				}
				return true
			case hasClass(n, "result__snippet"):
				if pending >= 0 {
					results[pending].Snippet = nodeText(n)
					pending = -1
				}
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results
}

// resolveDuckDuckGoLink unwraps /l/?uddg= redirect links and keeps only
// absolute http(s) targets.
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		if t, err := url.Parse(target); err == nil {
			u = t
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}

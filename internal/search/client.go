// Package search wraps a web-search API behind the single collaborator shape
// Phase 2 needs: a batch of queries in, deduplicated hits out.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.tavily.com"

// Client performs web searches.
type Client interface {
	// Search runs queries concurrently (bounded by the errgroup inside the
	// client, not by the caller) and returns deduplicated hits across all of
	// them, preserving first-seen order by URL.
	Search(ctx context.Context, queries []string, maxResults int) ([]Result, error)
}

// Result is a single search hit.
type Result struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithMaxConcurrency bounds how many queries are in flight at once. Spec
// caps Phase 2's fan-out at N ≤ 5 queries; this defends that bound even if a
// caller passes more.
func WithMaxConcurrency(n int) Option {
	return func(c *httpClient) { c.maxConcurrency = n }
}

type httpClient struct {
	apiKey         string
	baseURL        string
	http           *http.Client
	maxConcurrency int
}

// NewClient creates a web-search API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:         apiKey,
		baseURL:        defaultBaseURL,
		maxConcurrency: 5,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *httpClient) Search(ctx context.Context, queries []string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	limit := c.maxConcurrency
	if limit <= 0 || limit > len(queries) {
		limit = len(queries)
	}
	if limit < 1 {
		limit = 1
	}

	perQuery := make([][]Result, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			results, err := c.searchOne(gCtx, q, maxResults)
			if err != nil {
				return eris.Wrapf(err, "search: query %q", q)
			}
			perQuery[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupeByURL(perQuery), nil
}

func (c *httpClient) searchOne(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(searchRequest{APIKey: c.apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, eris.Wrap(err, "search: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "search: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "search: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "search: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("search: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "search: unmarshal response")
	}

	out := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, Result{URL: r.URL, Title: r.Title, Snippet: r.Content, Score: r.Score})
	}
	return out, nil
}

// dedupeByURL flattens per-query result sets into one list, keeping the
// first occurrence of each URL (Phase 2's contract: "deduplicated by URL").
func dedupeByURL(perQuery [][]Result) []Result {
	seen := make(map[string]bool)
	var out []Result
	for _, results := range perQuery {
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}
	return out
}

// Package fetch implements the Phase 2c content-enrichment collaborator: a
// plain HTTP GET plus a readability-style extraction down to plain text.
package fetch

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client fetches and extracts readable text from a URL.
type Client interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// Document is the extracted result of fetching one URL.
type Document struct {
	URL         string
	ExtractedText string
	Truncated   bool
	KBSize      int
}

const truncationMarker = "\n\n[... truncated ...]"

type httpClient struct {
	userAgent        string
	maxBytes         int
	strict           *http.Client
	lenient          *http.Client
	allowInsecureTLS bool
}

// Option configures the client.
type Option func(*httpClient)

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) { c.userAgent = ua }
}

// WithMaxBytes overrides the default 100KB post-extraction size cap.
func WithMaxBytes(n int) Option {
	return func(c *httpClient) { c.maxBytes = n }
}

// WithTimeout overrides the default 15s per-URL timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.strict.Timeout = d
		c.lenient.Timeout = d
	}
}

// WithAllowInsecureTLS enables a fallback retry with certificate
// verification disabled for known-problematic TLS chains. Off by default;
// the contract prefers strict verification.
func WithAllowInsecureTLS(allow bool) Option {
	return func(c *httpClient) { c.allowInsecureTLS = allow }
}

// NewClient creates a content-fetch client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		userAgent: "fitcheck-engine/1.0",
		maxBytes:  100 * 1024,
		strict: &http.Client{
			Timeout: 15 * time.Second,
		},
		lenient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in fallback only
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch performs the GET and extracts readable text. On any HTTP/TLS/size
// failure it returns an error; per the Phase 2c contract the caller omits
// that source and continues rather than failing the whole pipeline.
func (c *httpClient) Fetch(ctx context.Context, url string) (*Document, error) {
	body, err := c.get(ctx, url, c.strict)
	if err != nil && c.allowInsecureTLS && isTLSError(err) {
		body, err = c.get(ctx, url, c.lenient)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: %s", url)
	}

	text := ExtractReadableText(body)
	truncated := false
	if len(text) > c.maxBytes {
		text = text[:c.maxBytes] + truncationMarker
		truncated = true
	}

	return &Document{
		URL:           url,
		ExtractedText: text,
		Truncated:     truncated,
		KBSize:        len(text) / 1024,
	}, nil
}

func (c *httpClient) get(ctx context.Context, url string, hc *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, 10*1024*1024) // hard safety cap before extraction.
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}
	return raw, nil
}

func isTLSError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "certificate") || strings.Contains(msg, "x509") || strings.Contains(msg, "tls:")
}

package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch_DeduplicatesByURL(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := searchResponse{Results: []struct {
			URL     string  `json:"url"`
			Title   string  `json:"title"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		}{
			{URL: "https://acme.example/careers", Title: "Careers", Content: "hiring engineers", Score: 0.9},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	c := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), []string{"acme tech stack", "acme careers"}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "https://acme.example/careers", results[0].URL)
}

func TestSearch_PropagatesServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), []string{"q1"}, 5)
	assert.Error(t, err)
}

func TestSearch_EmptyQueries(t *testing.T) {
	c := NewClient("test-key", WithBaseURL("http://unused.invalid"))
	results, err := c.Search(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

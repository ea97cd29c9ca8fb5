package fetch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReadableText_StripsNavAndScript(t *testing.T) {
	raw := `<html><head><script>evil()</script></head><body>
<nav>Home About Contact</nav>
<main><p>We use Go, Kubernetes and Postgres.</p></main>
<footer>Copyright 2026</footer>
</body></html>`

	text := ExtractReadableText([]byte(raw))
	assert.Contains(t, text, "We use Go, Kubernetes and Postgres.")
	assert.NotContains(t, text, "evil()")
	assert.NotContains(t, text, "Home About Contact")
	assert.NotContains(t, text, "Copyright 2026")
}

func TestExtractReadableText_MalformedHTMLDegradesGracefully(t *testing.T) {
	text := ExtractReadableText([]byte("<p>unterminated paragraph <div"))
	assert.Contains(t, text, "unterminated paragraph")
}

func TestFetch_TruncatesAtMaxBytes(t *testing.T) {
	body := "<p>" + strings.Repeat("word ", 100) + "</p>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(WithMaxBytes(20))
	doc, err := c.Fetch(t.Context(), srv.URL)
	require.NoError(t, err)
	assert.True(t, doc.Truncated)
	assert.Contains(t, doc.ExtractedText, "truncated")
}

func TestFetch_OmitsOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.Fetch(t.Context(), srv.URL)
	assert.Error(t, err)
}

package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// skipTags never contribute text: scripts, styles, and the chrome around the
// actual article (nav/header/footer/aside), matching the readability
// heuristic of stripping boilerplate and keeping paragraphs.
var skipTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
	"form":   true,
	"noscript": true,
}

// blockTags insert a paragraph break so extracted text isn't one giant run-on
// line.
var blockTags = map[string]bool{
	"p":          true,
	"div":        true,
	"li":         true,
	"br":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"tr":         true,
	"blockquote": true,
}

// ExtractReadableText parses raw HTML and returns its main textual content,
// with navigation, scripts, and other non-article chrome stripped out.
// Malformed HTML degrades gracefully: the tokenizer just stops early and
// whatever was collected so far is returned.
func ExtractReadableText(rawHTML []byte) string {
	tokenizer := html.NewTokenizer(strings.NewReader(string(rawHTML)))

	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}

		tok := tokenizer.Token()
		name := strings.ToLower(tok.Data)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if skipTags[name] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth == 0 && blockTags[name] {
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			if skipTags[name] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if skipDepth == 0 && blockTags[name] {
				sb.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth == 0 {
				text := strings.TrimSpace(tok.Data)
				if text != "" {
					sb.WriteString(text)
					sb.WriteString(" ")
				}
			}
		}
	}

	return collapseWhitespace(sb.String())
}

// collapseWhitespace folds runs of blank lines and trailing spaces down to a
// single blank line / single space, so downstream size caps count actual
// content rather than whitespace.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

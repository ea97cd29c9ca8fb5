package pipeline

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunContentEnrich fetches the top-K URLs from raw_search_results (ranked by
// each search result's score, highest first) and extracts readable text from
// each. A per-URL failure never fails the pipeline: the source is omitted and
// the failure is logged; no quality flag is recorded for a failed fetch
// (single_source is added only when exactly one fetch succeeds).
func RunContentEnrich(ctx context.Context, deps *Deps, s *State) error {
	urls := topURLs(s.RawSearchResults, deps.MaxFetchURLs)
	if len(urls) == 0 {
		return nil
	}

	docs := make([]*EnrichedSource, len(urls))
	limit := deps.MaxFetchURLs
	if limit < 1 {
		limit = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			doc, err := deps.fetchURL(gCtx, url)
			if err != nil {
				zap.L().Warn("content enrich: omitting source", zap.String("url", url), zap.Error(err))
				return nil
			}
			docs[i] = &EnrichedSource{
				URL:           doc.URL,
				ExtractedText: doc.ExtractedText,
				KBSize:        doc.KBSize,
			}
			return nil
		})
	}
	_ = g.Wait() // errors are never returned above; every failure is absorbed per-URL.

	var enriched []EnrichedSource
	for _, d := range docs {
		if d != nil {
			enriched = append(enriched, *d)
		}
	}
	if len(enriched) == 0 && len(urls) > 0 {
		zap.L().Warn("content enrich: every source failed", zap.Int("attempted", len(urls)))
	} else if len(enriched) == 1 {
		s.AddQualityFlag(FlagSingleSource)
	}
	s.EnrichedSources = enriched
	return nil
}

// topURLs ranks raw search results by score (descending) and returns the
// first max URLs, deduplicated.
func topURLs(results []SearchResult, max int) []string {
	ranked := append([]SearchResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	seen := make(map[string]bool)
	var urls []string
	for _, r := range ranked {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		urls = append(urls, r.URL)
		if len(urls) >= max {
			break
		}
	}
	return urls
}

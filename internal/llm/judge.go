package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// JudgeFunc evaluates a single item and returns its verdict.
type JudgeFunc[T any, R any] func(ctx context.Context, item T) (R, error)

// ParallelScore runs fn over items with bounded concurrency, the pattern
// Phase 2b's research reranker and Phase 5b's confidence reranker both use to
// fan out independent LLM-as-judge calls. Results are returned in the same
// order as items. maxConcurrency is clamped to at least 1; a zero or
// negative value runs everything sequentially.
func ParallelScore[T any, R any](ctx context.Context, items []T, maxConcurrency int, fn JudgeFunc[T, R]) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gCtx, item)
			if err != nil {
				return eris.Wrapf(err, "parallel score: item %d", i)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

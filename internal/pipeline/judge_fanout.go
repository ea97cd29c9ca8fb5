package pipeline

import (
	"context"
	"sort"

	"github.com/fitcheck/engine/internal/llm"
	"github.com/fitcheck/engine/internal/llm/anthropic"
)

// judgeCount bounds how many independent judge calls a parallel-scored phase
// fans out to, per the spec's M ≤ 4 ceiling on Phase 2b/5b judge concurrency.
func judgeCount(configured int) int {
	if configured < 1 {
		return 1
	}
	if configured > 4 {
		return 4
	}
	return configured
}

// runJudges issues n independent calls to the same prompt concurrently —
// the parallel-scorer pattern Phase 2b's quality gate and Phase 5b's
// confidence reranker both use so a single noisy sample can't decide a
// routing or scoring outcome on its own. Concurrency is bounded by
// deps.MaxJudgeConcurrency, the same cap serving both call sites.
func runJudges[T any](ctx context.Context, deps *Deps, phase string, req anthropic.MessageRequest, n int) ([]T, error) {
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}
	return llm.ParallelScore(ctx, slots, deps.MaxJudgeConcurrency, func(ctx context.Context, _ int) (T, error) {
		result, _, err := callStructured[T](ctx, deps, phase, req)
		return result, err
	})
}

// medianInt returns the median of values, rounding down on an even count.
func medianInt(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// majorityVote picks the most-common value across votes. Ties are broken by
// rank, which callers define so that ties resolve toward the more
// conservative outcome rather than an arbitrary map-iteration order.
func majorityVote[T comparable](votes []T, rank func(T) int) T {
	counts := make(map[T]int, len(votes))
	for _, v := range votes {
		counts[v]++
	}
	var best T
	bestCount, bestRank := -1, -1
	for v, c := range counts {
		r := rank(v)
		if c > bestCount || (c == bestCount && r > bestRank) {
			best, bestCount, bestRank = v, c, r
		}
	}
	return best
}

// unionStrings merges value lists from every judge, deduplicating but
// preserving first-seen order.
func unionStrings(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func qualityTierRank(t QualityTier) int {
	switch t {
	case QualityTierInsufficient:
		return 3
	case QualityTierLow:
		return 2
	case QualityTierMedium:
		return 1
	default: // HIGH
		return 0
	}
}

func recommendedActionRank(a RecommendedAction) int {
	switch a {
	case ActionFlagLowData:
		return 2
	case ActionEnhanceSearch:
		return 1
	default: // CONTINUE
		return 0
	}
}

func verifiabilityRank(v Verifiability) int {
	switch v {
	case VerifiabilitySuspicious:
		return 3
	case VerifiabilityUnverified:
		return 2
	case VerifiabilityPartial:
		return 1
	default: // VERIFIED
		return 0
	}
}

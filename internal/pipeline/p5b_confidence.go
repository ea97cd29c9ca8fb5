package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/prompts"
)

// confidenceResult is the JSON contract Phase 5b's judge call asks for.
type confidenceResult struct {
	CalibratedScore      int      `json:"calibrated_score"`
	Tier                 Tier     `json:"tier"`
	QualityFlagsAdded    []string `json:"quality_flags_added"`
	AdjustmentRationale  string   `json:"adjustment_rationale"`
}

// RunConfidenceReranker judges match_score downward only, bounded by
// RerankerAdjustmentBound, and derives the final tier from the calibrated
// score. Any attempt by the model to raise the score above match_score is
// clamped back down — this is the pipeline's last anti-sycophancy guardrail.
func RunConfidenceReranker(ctx context.Context, deps *Deps, s *State) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load(PhaseConfidenceReranker, promptClass, map[string]string{
		"adjustment_bound":       strconv.Itoa(deps.RerankerAdjustmentBound),
		"match_score":            strconv.Itoa(s.MatchScore),
		"has_fundamental_mismatch": strconv.FormatBool(s.HasFundamentalMismatch),
		"quality_flags":          strings.Join(s.QualityFlags, ", "),
		"gaps":                   formatGaps(s.Gaps),
	})
	if err != nil {
		return err
	}

	req := anthropic.MessageRequest{
		Model:     model,
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{Role: "user", Content: tpl},
		},
	}

	judged, err := runJudges[confidenceResult](ctx, deps, PhaseConfidenceReranker, req, judgeCount(deps.MaxJudgeConcurrency))
	if err != nil {
		s.AddQualityFlag(FlagParseFailure)
		s.CalibratedScore = s.MatchScore
		s.CalibratedScoreSet = true
		s.FinalTier = TierForScore(s.MatchScore)
		s.AdjustmentRationale = "confidence reranker failed to parse; carried match_score forward unchanged"
		return nil
	}
	result := aggregateConfidenceResults(judged)

	lowerBound := s.MatchScore - deps.RerankerAdjustmentBound
	calibrated := result.CalibratedScore
	if calibrated > s.MatchScore {
		calibrated = s.MatchScore
	}
	if calibrated < lowerBound {
		calibrated = lowerBound
	}
	if calibrated < 0 {
		calibrated = 0
	}

	s.CalibratedScore = calibrated
	s.CalibratedScoreSet = true
	s.FinalTier = TierForScore(calibrated)
	s.AdjustmentRationale = result.AdjustmentRationale

	for _, f := range result.QualityFlagsAdded {
		s.AddQualityFlag(f)
	}

	if s.HasFundamentalMismatch && s.CalibratedScore > deps.FundamentalMismatchCap {
		s.CalibratedScore = deps.FundamentalMismatchCap
		s.FinalTier = TierForScore(s.CalibratedScore)
	}
	return nil
}

// aggregateConfidenceResults collapses the parallel judge panel into one
// verdict: calibrated_score by median (bounding out a single lenient or
// harsh outlier), flags by union, rationale taken from whichever judge's
// score landed closest to the median so it reads as a coherent explanation.
func aggregateConfidenceResults(judged []confidenceResult) confidenceResult {
	if len(judged) == 1 {
		return judged[0]
	}

	scores := make([]int, len(judged))
	var flagLists [][]string
	for i, r := range judged {
		scores[i] = r.CalibratedScore
		flagLists = append(flagLists, r.QualityFlagsAdded)
	}
	median := medianInt(scores)

	best := judged[0]
	bestDelta := abs(best.CalibratedScore - median)
	for _, r := range judged[1:] {
		if d := abs(r.CalibratedScore - median); d < bestDelta {
			best, bestDelta = r, d
		}
	}

	return confidenceResult{
		CalibratedScore:     median,
		Tier:                best.Tier,
		QualityFlagsAdded:   unionStrings(flagLists...),
		AdjustmentRationale: best.AdjustmentRationale,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func formatGaps(gaps []Gap) string {
	var out []string
	for _, g := range gaps {
		out = append(out, string(g.Severity)+": "+g.Requirement)
	}
	return strings.Join(out, "; ")
}

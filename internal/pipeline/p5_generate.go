package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/prompts"
)

const refusalReport = `# Fit-Check Request Declined

This query doesn't describe an employer or job to evaluate, or it attempts
to influence this tool's scoring directly rather than asking a genuine
fit question.

## Confidence Score & Tier

**Score: N/A** — **Tier: INSUFFICIENT_DATA**

No research, comparison, or matching was performed for this request.
`

// RunGenerateResults produces the final markdown report, streaming tokens
// through onChunk as they arrive. Three branches:
//   - terminal classification (irrelevant/adversarial): a hardcoded refusal
//     report with zero LLM or tool calls, chunked through onChunk to present
//     a uniform streaming interface to the SSE layer.
//   - low-data (FLAG_LOW_DATA or INSUFFICIENT tier): a distinct template
//     that states the limitation and omits a score.
//   - normal path: the full report with bolded, parsable score/tier tokens.
func RunGenerateResults(ctx context.Context, deps *Deps, s *State, onChunk func(string) error) error {
	if IsTerminalClassification(s.QueryType) {
		return streamStaticText(refusalReport, onChunk, s)
	}

	if IsLowDataPath(s) {
		return runLowDataReport(ctx, deps, s, onChunk)
	}

	return runScoredReport(ctx, deps, s, onChunk)
}

func runScoredReport(ctx context.Context, deps *Deps, s *State, onChunk func(string) error) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load(PhaseGenerateResults, promptClass, map[string]string{
		"candidate_name":           deps.Profile.Name,
		"calibrated_score":         strconv.Itoa(s.CalibratedScore),
		"tier":                     string(s.FinalTier),
		"has_fundamental_mismatch": strconv.FormatBool(s.HasFundamentalMismatch),
		"strengths":                formatStrengths(s.Strengths),
		"gaps":                     formatGaps(s.Gaps),
		"adjustment_rationale":     s.AdjustmentRationale,
	})
	if err != nil {
		return err
	}

	req := anthropic.MessageRequest{
		Model:     model,
		MaxTokens: 2048,
		Messages: []anthropic.Message{
			{Role: "user", Content: tpl},
		},
	}

	resp, err := deps.streamMessage(ctx, PhaseGenerateResults, req, onChunk)
	if err != nil {
		return err
	}

	s.FinalReport = resp.Text()
	return nil
}

func runLowDataReport(ctx context.Context, deps *Deps, s *State, onChunk func(string) error) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load("p5_generate_low_data", promptClass, map[string]string{
		"candidate_name": deps.Profile.Name,
		"quality_flags":  strings.Join(s.QualityFlags, ", "),
		"strengths":      formatStrengths(s.Strengths),
		"gaps":           formatGaps(s.Gaps),
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

	resp, err := deps.streamMessage(ctx, PhaseGenerateResults, req, onChunk)
	if err != nil {
		return err
	}

	s.FinalTier = TierInsufficientData
	s.CalibratedScoreSet = false
	s.FinalReport = resp.Text()
	return nil
}

// streamStaticText delivers text to onChunk line-by-line so the refusal
// branch behaves like a stream to the SSE writer without an LLM call.
func streamStaticText(text string, onChunk func(string) error, s *State) error {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if onChunk != nil {
			if err := onChunk(line); err != nil {
				return err
			}
		}
	}
	s.FinalReport = text
	return nil
}

func formatStrengths(strengths []Strength) string {
	var out []string
	for _, s := range strengths {
		out = append(out, fmt.Sprintf("%s (%s)", s.Claim, s.Evidence))
	}
	return strings.Join(out, "; ")
}

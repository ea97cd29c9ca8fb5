package pipeline

import (
	"context"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/prompts"
)

// matchingResult is the JSON contract Phase 4's matching call asks for.
type matchingResult struct {
	MatchScore             int      `json:"match_score"`
	Matched                []string `json:"matched"`
	Unmatched               []string `json:"unmatched"`
	HasFundamentalMismatch bool     `json:"has_fundamental_mismatch"`
}

// RunSkillsMatching scores the profile against extracted/implied
// requirements and applies the fundamental-mismatch clamp: any CRITICAL gap
// from Phase 3 forces has_fundamental_mismatch=true and match_score ≤ 35,
// regardless of what the model itself reports.
func RunSkillsMatching(ctx context.Context, deps *Deps, s *State) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load(PhaseSkillsMatching, promptClass, map[string]string{
		"extracted_skills": strings.Join(s.ExtractedSkills, ", "),
		"profile_skills":   strings.Join(deps.Profile.AllSkills(), ", "),
		"requirements":     strings.Join(s.Requirements, ", "),
		"critical_gaps":    formatCriticalGaps(s.Gaps),
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

	result, _, err := callStructured[matchingResult](ctx, deps, PhaseSkillsMatching, req)
	if err != nil {
		s.AddQualityFlag(FlagParseFailure)
		s.MatchScore = 0
		s.HasFundamentalMismatch = s.HasCriticalGap()
		return nil
	}

	s.MatchScore = clampScore(result.MatchScore)
	s.Matched = result.Matched
	s.Unmatched = disjointUnmatched(result.Matched, result.Unmatched)
	s.HasFundamentalMismatch = result.HasFundamentalMismatch || s.HasCriticalGap()

	if s.HasFundamentalMismatch {
		s.AddQualityFlag(FlagFundamentalMismatch)
		if s.MatchScore > deps.FundamentalMismatchCap {
			s.MatchScore = deps.FundamentalMismatchCap
		}
	}
	return nil
}

// disjointUnmatched drops any entry from unmatched that also appears in
// matched — the model sometimes reports a skill both ways, and matched/
// unmatched must partition the requirement set, not overlap it.
func disjointUnmatched(matched, unmatched []string) []string {
	if len(unmatched) == 0 {
		return unmatched
	}
	inMatched := make(map[string]bool, len(matched))
	for _, m := range matched {
		inMatched[m] = true
	}
	out := make([]string, 0, len(unmatched))
	for _, u := range unmatched {
		if !inMatched[u] {
			out = append(out, u)
		}
	}
	return out
}

func formatCriticalGaps(gaps []Gap) string {
	var out []string
	for _, g := range gaps {
		if g.Severity == SeverityCritical {
			out = append(out, g.Requirement)
		}
	}
	return strings.Join(out, "; ")
}

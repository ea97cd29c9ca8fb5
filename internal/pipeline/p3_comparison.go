package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/profile"
	"github.com/fitcheck/engine/internal/prompts"
)

// comparisonResult is the JSON contract Phase 3's anti-sycophancy call asks for.
type comparisonResult struct {
	Strengths                    []Strength `json:"strengths"`
	Gaps                         []Gap      `json:"gaps"`
	RiskAssessment               RiskLevel  `json:"risk_assessment"`
	HasFundamentalMismatchSignal bool       `json:"has_fundamental_mismatch_signal"`
}

// RunSkepticalComparison compares the profile against the employer research
// under an anti-sycophancy mandate: at least MinGapsRequired gaps, and an
// explicit fundamental-domain-mismatch check. A gap list that still falls
// short after parsing is padded with a generic CRITICAL-free gap rather than
// silently violating the invariant.
func RunSkepticalComparison(ctx context.Context, deps *Deps, s *State) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load(PhaseSkepticalCompare, promptClass, map[string]string{
		"research": formatResearchForComparison(s),
	})
	if err != nil {
		return err
	}

	// The candidate profile is identical on every request this process
	// serves, so it rides in a cached system block rather than the per-call
	// user message — only the first call in the cache TTL window pays for it.
	req := anthropic.MessageRequest{
		Model:     model,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(formatProfile(deps.Profile)),
		Messages: []anthropic.Message{
			{Role: "user", Content: tpl},
		},
	}

	result, _, err := callStructured[comparisonResult](ctx, deps, PhaseSkepticalCompare, req)
	if err != nil {
		s.AddQualityFlag(FlagParseFailure)
		s.Gaps = enforceMinGaps([]Gap{{Requirement: "unable to assess: comparison step failed", Severity: SeverityMedium}}, deps.MinGapsRequired)
		s.RiskAssessment = RiskHigh
		return nil
	}

	s.Strengths = filterSupportedStrengths(result.Strengths)
	s.Gaps = enforceMinGaps(result.Gaps, deps.MinGapsRequired)
	s.RiskAssessment = normalizeRisk(result.RiskAssessment)

	if result.HasFundamentalMismatchSignal && !s.HasCriticalGap() {
		s.Gaps = append(s.Gaps, Gap{Requirement: "fundamental domain mismatch flagged by comparison step", Severity: SeverityCritical})
	}
	if s.HasCriticalGap() {
		s.AddQualityFlag(FlagFundamentalMismatch)
	}
	return nil
}

// filterSupportedStrengths drops any strength whose evidence field is empty
// — the evidence rule requires every strength to cite a profile entry or
// enriched source.
func filterSupportedStrengths(strengths []Strength) []Strength {
	out := make([]Strength, 0, len(strengths))
	for _, s := range strengths {
		if strings.TrimSpace(s.Evidence) != "" {
			out = append(out, s)
		}
	}
	return out
}

func enforceMinGaps(gaps []Gap, min int) []Gap {
	if len(gaps) >= min {
		return gaps
	}
	padded := append([]Gap(nil), gaps...)
	for len(padded) < min {
		padded = append(padded, Gap{
			Requirement: "no specific evidence found for a requirement the role implies",
			Severity:    SeverityLow,
		})
	}
	return padded
}

func normalizeRisk(r RiskLevel) RiskLevel {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return r
	default:
		return RiskMedium
	}
}

func formatProfile(p *profile.Profile) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", p.Name)
	fmt.Fprintf(&b, "bio: %s\n", p.Bio)
	fmt.Fprintf(&b, "education: %s\n", p.Education)
	fmt.Fprintf(&b, "skills: %s\n", strings.Join(p.AllSkills(), ", "))
	for _, proj := range p.Projects {
		fmt.Fprintf(&b, "project: %s — %s (%s)\n", proj.Name, proj.Description, strings.Join(proj.Tech, ", "))
	}
	for _, exp := range p.Experience {
		fmt.Fprintf(&b, "experience: %s at %s (%s) — %s (%s)\n", exp.Title, exp.Employer, exp.Duration, strings.Join(exp.Highlights, "; "), strings.Join(exp.Tech, ", "))
	}
	return b.String()
}

func formatResearchForComparison(s *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "employer_summary: %s\n", s.EmployerSummary)
	fmt.Fprintf(&b, "tech_stack: %s\n", strings.Join(s.TechStack, ", "))
	fmt.Fprintf(&b, "requirements: %s\n", strings.Join(s.Requirements, ", "))
	for _, src := range s.EnrichedSources {
		fmt.Fprintf(&b, "source %s: %s\n", src.URL, truncateForPrompt(src.ExtractedText, 2000))
	}
	return b.String()
}

func truncateForPrompt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

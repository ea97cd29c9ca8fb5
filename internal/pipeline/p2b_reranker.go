package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/prompts"
)

// rerankerResult is the JSON contract Phase 2b's quality-gate call asks for.
type rerankerResult struct {
	ResearchQualityTier  QualityTier       `json:"research_quality_tier"`
	DataConfidenceScore  int               `json:"data_confidence_score"`
	QualityFlags         []string          `json:"quality_flags"`
	RecommendedAction    RecommendedAction `json:"recommended_action"`
	EnhancementQueries   []string          `json:"enhancement_queries"`
	CompanyVerifiability Verifiability     `json:"company_verifiability"`
}

// RunResearchReranker scores Phase 2's output against the weighted rubric
// and decides whether to continue, request another search pass, or flag low
// data. It never writes search_attempt — the router owns that counter.
func RunResearchReranker(ctx context.Context, deps *Deps, s *State, maxSearchAttempts int) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load(PhaseResearchReranker, promptClass, map[string]string{
		"search_attempt":  strconv.Itoa(s.SearchAttempt + 1),
		"max_attempts":    strconv.Itoa(maxSearchAttempts),
		"research_summary": summarizeResearch(s),
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

	judged, err := runJudges[rerankerResult](ctx, deps, PhaseResearchReranker, req, judgeCount(deps.MaxJudgeConcurrency))
	if err != nil {
		s.AddQualityFlag(FlagParseFailure)
		s.ResearchQualityTier = QualityTierInsufficient
		s.RecommendedAction = ActionFlagLowData
		return nil
	}
	result := aggregateRerankerResults(judged)

	s.ResearchQualityTier = normalizeQualityTier(result.ResearchQualityTier)
	s.DataConfidenceScore = clampScore(result.DataConfidenceScore)
	for _, f := range result.QualityFlags {
		s.AddQualityFlag(f)
	}
	s.RecommendedAction = normalizeAction(result.RecommendedAction)

	enhancement := result.EnhancementQueries
	if len(enhancement) > deps.MaxEnhancementQueries {
		enhancement = enhancement[:deps.MaxEnhancementQueries]
	}
	s.EnhancementQueries = enhancement
	s.CompanyVerifiability = result.CompanyVerifiability

	// Enforce the routing table even if the model's own recommended_action
	// drifted from the rubric outcome it just reported — an invariant
	// violation gets coerced rather than trusted verbatim.
	s.RecommendedAction = enforceRoutingTable(s.ResearchQualityTier, s.CompanyVerifiability, s.RecommendedAction)
	if s.RecommendedAction == ActionEnhanceSearch && len(s.EnhancementQueries) == 0 {
		s.AddQualityFlag(FlagSparseTechStack)
		s.RecommendedAction = ActionFlagLowData
	}

	return nil
}

// aggregateRerankerResults collapses the parallel scorer's M independent
// judge verdicts into one: tier/action/verifiability by conservative
// majority vote, confidence by median, flags by union. A single noisy judge
// can no longer flip the routing decision on its own.
func aggregateRerankerResults(judged []rerankerResult) rerankerResult {
	if len(judged) == 1 {
		return judged[0]
	}

	tiers := make([]QualityTier, len(judged))
	actions := make([]RecommendedAction, len(judged))
	verifiabilities := make([]Verifiability, len(judged))
	scores := make([]int, len(judged))
	var flagLists [][]string
	var enhancementQueries []string

	for i, r := range judged {
		tiers[i] = normalizeQualityTier(r.ResearchQualityTier)
		actions[i] = normalizeAction(r.RecommendedAction)
		verifiabilities[i] = r.CompanyVerifiability
		scores[i] = clampScore(r.DataConfidenceScore)
		flagLists = append(flagLists, r.QualityFlags)
		if len(r.EnhancementQueries) > 0 && len(enhancementQueries) == 0 {
			enhancementQueries = r.EnhancementQueries
		}
	}

	return rerankerResult{
		ResearchQualityTier:  majorityVote(tiers, qualityTierRank),
		DataConfidenceScore:  medianInt(scores),
		QualityFlags:         unionStrings(flagLists...),
		RecommendedAction:    majorityVote(actions, recommendedActionRank),
		EnhancementQueries:   enhancementQueries,
		CompanyVerifiability: majorityVote(verifiabilities, verifiabilityRank),
	}
}

func enforceRoutingTable(tier QualityTier, verifiability Verifiability, proposed RecommendedAction) RecommendedAction {
	// SUSPICIOUS verifiability forces FLAG_LOW_DATA regardless of tier.
	if verifiability == VerifiabilitySuspicious {
		return ActionFlagLowData
	}
	switch tier {
	case QualityTierHigh, QualityTierMedium:
		return ActionContinue
	default: // LOW, INSUFFICIENT
		if proposed == ActionEnhanceSearch {
			return ActionEnhanceSearch
		}
		return ActionFlagLowData
	}
}

func normalizeQualityTier(t QualityTier) QualityTier {
	switch t {
	case QualityTierHigh, QualityTierMedium, QualityTierLow, QualityTierInsufficient:
		return t
	default:
		return QualityTierInsufficient
	}
}

func normalizeAction(a RecommendedAction) RecommendedAction {
	switch a {
	case ActionContinue, ActionEnhanceSearch, ActionFlagLowData:
		return a
	default:
		return ActionFlagLowData
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func summarizeResearch(s *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "employer_summary: %s\n", s.EmployerSummary)
	fmt.Fprintf(&b, "tech_stack: %s\n", strings.Join(s.TechStack, ", "))
	fmt.Fprintf(&b, "requirements: %s\n", strings.Join(s.Requirements, ", "))
	fmt.Fprintf(&b, "culture_signals: %s\n", strings.Join(s.CultureSignals, ", "))
	fmt.Fprintf(&b, "source_count: %d\n", len(s.RawSearchResults))
	if s.HasQualityFlag(FlagSearchFailed) {
		b.WriteString("note: the search collaborator failed on this attempt\n")
	}
	return b.String()
}

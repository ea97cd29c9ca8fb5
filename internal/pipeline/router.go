package pipeline

// Route is a pure function over State: it decides the next phase and, on
// the ENHANCE_SEARCH edge, is the only place search_attempt is incremented.
// This bounded counter is the loop's termination witness — Phase 2 reads
// search_attempt but must never write it, or the enhancement loop can spin
// forever.
func Route(s *State, fromPhase string, maxSearchAttempts int) string {
	switch fromPhase {
	case PhaseConnecting:
		if s.QueryType == QueryTypeIrrelevant || s.QueryType == QueryTypeAdversarial {
			return PhaseGenerateResults
		}
		return PhaseDeepResearch

	case PhaseDeepResearch:
		return PhaseResearchReranker

	case PhaseResearchReranker:
		switch s.RecommendedAction {
		case ActionContinue:
			return PhaseContentEnrich
		case ActionEnhanceSearch:
			if s.SearchAttempt < maxSearchAttempts {
				s.SearchAttempt++
				return PhaseDeepResearch
			}
			// Attempt ceiling reached: coerce to FLAG_LOW_DATA rather than
			// looping, per the invariant-violation error-handling policy.
			s.RecommendedAction = ActionFlagLowData
			return PhaseGenerateResults
		default: // FLAG_LOW_DATA
			return PhaseGenerateResults
		}

	case PhaseContentEnrich:
		return PhaseSkepticalCompare

	case PhaseSkepticalCompare:
		return PhaseSkillsMatching

	case PhaseSkillsMatching:
		return PhaseConfidenceReranker

	case PhaseConfidenceReranker:
		return PhaseGenerateResults

	case PhaseGenerateResults:
		return PhaseEnd

	default:
		return PhaseEnd
	}
}

// IsTerminalClassification reports whether query_type short-circuits
// straight to the refusal report with no research or scoring performed.
func IsTerminalClassification(qt QueryType) bool {
	return qt == QueryTypeIrrelevant || qt == QueryTypeAdversarial
}

// IsLowDataPath reports whether the run is headed to P5's low-data branch
// (a distinct template that states the limitation and omits a score).
func IsLowDataPath(s *State) bool {
	return s.RecommendedAction == ActionFlagLowData || s.ResearchQualityTier == QualityTierInsufficient
}

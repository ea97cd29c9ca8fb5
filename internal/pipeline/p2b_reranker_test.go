package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcheck/engine/internal/fetch"
)

func TestEnforceRoutingTable_SuspiciousForcesFlagLowDataAcrossEveryTier(t *testing.T) {
	tiers := []QualityTier{QualityTierHigh, QualityTierMedium, QualityTierLow, QualityTierInsufficient}
	for _, tier := range tiers {
		got := enforceRoutingTable(tier, VerifiabilitySuspicious, ActionEnhanceSearch)
		assert.Equal(t, ActionFlagLowData, got, "tier %s with SUSPICIOUS verifiability must coerce to FLAG_LOW_DATA", tier)
	}
}

func TestEnforceRoutingTable_HighMediumContinueWhenVerifiable(t *testing.T) {
	assert.Equal(t, ActionContinue, enforceRoutingTable(QualityTierHigh, VerifiabilityVerified, ActionContinue))
	assert.Equal(t, ActionContinue, enforceRoutingTable(QualityTierMedium, VerifiabilityPartial, ActionContinue))
}

func TestEnforceRoutingTable_LowTierRespectsProposedEnhanceSearch(t *testing.T) {
	got := enforceRoutingTable(QualityTierLow, VerifiabilityUnverified, ActionEnhanceSearch)
	assert.Equal(t, ActionEnhanceSearch, got)
}

func TestEnforceRoutingTable_LowTierDefaultsToFlagLowData(t *testing.T) {
	got := enforceRoutingTable(QualityTierInsufficient, VerifiabilityUnverified, ActionContinue)
	assert.Equal(t, ActionFlagLowData, got)
}

func TestRunResearchReranker_EnforcesRoutingTableOverModelOutput(t *testing.T) {
	// The model proposes ENHANCE_SEARCH for a LOW tier with SUSPICIOUS
	// verifiability; the routing table must override it to FLAG_LOW_DATA.
	llm := &queueLLM{responses: []string{
		`{"research_quality_tier":"LOW","data_confidence_score":20,"quality_flags":[],"recommended_action":"ENHANCE_SEARCH","enhancement_queries":["more info"],"company_verifiability":"SUSPICIOUS"}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard}

	err := RunResearchReranker(context.Background(), deps, s, 2)
	require.NoError(t, err)

	assert.Equal(t, ActionFlagLowData, s.RecommendedAction)
}

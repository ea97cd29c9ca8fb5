package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcheck/engine/internal/fetch"
)

func TestRunConfidenceReranker_NeverRaisesAboveMatchScore(t *testing.T) {
	llm := &queueLLM{responses: []string{
		`{"calibrated_score":99,"tier":"HIGH","quality_flags_added":[],"adjustment_rationale":"judge tried to raise the score"}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard, MatchScore: 60}

	err := RunConfidenceReranker(context.Background(), deps, s)
	require.NoError(t, err)

	assert.LessOrEqual(t, s.CalibratedScore, s.MatchScore)
}

func TestRunConfidenceReranker_BoundedDownwardAdjustment(t *testing.T) {
	llm := &queueLLM{responses: []string{
		`{"calibrated_score":0,"tier":"LOW","quality_flags_added":[],"adjustment_rationale":"judge tanked the score"}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard, MatchScore: 60}

	err := RunConfidenceReranker(context.Background(), deps, s)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, s.CalibratedScore, s.MatchScore-deps.RerankerAdjustmentBound, "the downward adjustment is bounded, not unlimited")
}

func TestRunConfidenceReranker_FundamentalMismatchCapsScoreRegardlessOfJudge(t *testing.T) {
	llm := &queueLLM{responses: []string{
		`{"calibrated_score":60,"tier":"MEDIUM_HIGH","quality_flags_added":[],"adjustment_rationale":"judge ignores the mismatch"}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard, MatchScore: 70, HasFundamentalMismatch: true}

	err := RunConfidenceReranker(context.Background(), deps, s)
	require.NoError(t, err)

	assert.LessOrEqual(t, s.CalibratedScore, deps.FundamentalMismatchCap)
}

func TestRunConfidenceReranker_ParseFailureCarriesMatchScoreForward(t *testing.T) {
	llm := &queueLLM{responses: []string{"not json", "still not json"}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard, MatchScore: 55}

	err := RunConfidenceReranker(context.Background(), deps, s)
	require.NoError(t, err)

	assert.Equal(t, 55, s.CalibratedScore)
	assert.True(t, s.CalibratedScoreSet)
	assert.True(t, s.HasQualityFlag(FlagParseFailure))
}

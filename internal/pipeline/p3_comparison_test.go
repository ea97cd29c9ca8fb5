package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcheck/engine/internal/fetch"
)

func TestRunSkepticalComparison_PadsGapsBelowMinimum(t *testing.T) {
	llm := &queueLLM{responses: []string{
		`{"strengths":[{"claim":"go","evidence":"5 years"}],"gaps":[{"requirement":"on-call","severity":"LOW"}],"risk_assessment":"LOW","has_fundamental_mismatch_signal":false}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard}

	err := RunSkepticalComparison(context.Background(), deps, s)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(s.Gaps), deps.MinGapsRequired)
}

func TestRunSkepticalComparison_FundamentalMismatchSignalAddsCriticalGap(t *testing.T) {
	llm := &queueLLM{responses: []string{
		`{"strengths":[],"gaps":[{"requirement":"backend basics","severity":"MEDIUM"},{"requirement":"testing","severity":"LOW"}],"risk_assessment":"HIGH","has_fundamental_mismatch_signal":true}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard}

	err := RunSkepticalComparison(context.Background(), deps, s)
	require.NoError(t, err)

	assert.True(t, s.HasCriticalGap())
	assert.True(t, s.HasQualityFlag(FlagFundamentalMismatch))
}

func TestRunSkepticalComparison_DropsStrengthsWithoutEvidence(t *testing.T) {
	llm := &queueLLM{responses: []string{
		`{"strengths":[{"claim":"go","evidence":"5 years"},{"claim":"unsupported","evidence":""}],"gaps":[{"requirement":"a","severity":"LOW"},{"requirement":"b","severity":"LOW"}],"risk_assessment":"LOW","has_fundamental_mismatch_signal":false}`,
	}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard}

	err := RunSkepticalComparison(context.Background(), deps, s)
	require.NoError(t, err)

	require.Len(t, s.Strengths, 1)
	assert.Equal(t, "go", s.Strengths[0].Claim)
}

func TestRunSkepticalComparison_ParseFailureDegradesGracefully(t *testing.T) {
	llm := &queueLLM{responses: []string{"not json", "still not json"}}
	deps := testDeps(llm, &stubSearch{}, &stubFetch{doc: &fetch.Document{}})
	s := &State{ModelClass: ModelClassStandard}

	err := RunSkepticalComparison(context.Background(), deps, s)
	require.NoError(t, err)

	assert.True(t, s.HasQualityFlag(FlagParseFailure))
	assert.Equal(t, RiskHigh, s.RiskAssessment)
}

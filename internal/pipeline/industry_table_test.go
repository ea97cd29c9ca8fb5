package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferIndustry_Fintech(t *testing.T) {
	ind := InferIndustry("We build payments infrastructure for banks.")
	require.NotNil(t, ind)
	assert.Equal(t, "fintech", ind.Industry)
	assert.Contains(t, ind.TypicalTech, "Kafka")
}

func TestInferIndustry_NoMatch(t *testing.T) {
	assert.Nil(t, InferIndustry("a generic company about nothing in particular"))
}

func TestInferIndustry_CaseInsensitive(t *testing.T) {
	ind := InferIndustry("MACHINE LEARNING platform for LLM inference")
	require.NotNil(t, ind)
	assert.Equal(t, "ai_ml", ind.Industry)
}

package pipeline

import "strings"

// IndustryDefaults holds fallback tech-stack expectations for a detected
// industry, used by Phase 2's attempt 2 when searches return sparse data.
type IndustryDefaults struct {
	Industry        string
	TypicalTech     []string
	TypicalKeywords []string
}

// industryTable is loaded once at process start (it is a small, static data
// table, not a per-request computation) and mirrors the teacher's
// registry-loaded-once convention for reference data.
var industryTable = []IndustryDefaults{
	{
		Industry:        "fintech",
		TypicalTech:     []string{"PostgreSQL", "Kafka", "Java", "Go", "AWS", "Kubernetes"},
		TypicalKeywords: []string{"payments", "ledger", "compliance", "fraud", "banking", "fintech"},
	},
	{
		Industry:        "ai_ml",
		TypicalTech:     []string{"Python", "PyTorch", "Kubernetes", "GPU clusters", "Ray"},
		TypicalKeywords: []string{"machine learning", "llm", "inference", "training", "model", "ai"},
	},
	{
		Industry:        "saas_b2b",
		TypicalTech:     []string{"PostgreSQL", "React", "TypeScript", "Kubernetes", "AWS"},
		TypicalKeywords: []string{"saas", "b2b", "enterprise", "subscription", "multi-tenant"},
	},
	{
		Industry:        "e_commerce",
		TypicalTech:     []string{"Go", "React", "Redis", "Kafka", "PostgreSQL"},
		TypicalKeywords: []string{"checkout", "cart", "inventory", "marketplace", "e-commerce", "retail"},
	},
	{
		Industry:        "streaming_media",
		TypicalTech:     []string{"Go", "Kafka", "CDN", "gRPC", "Kubernetes"},
		TypicalKeywords: []string{"streaming", "video", "media", "transcoding", "cdn"},
	},
}

// InferIndustry returns the best-matching industry defaults for the given
// text (employer summary, job title, or raw search snippets), or nil if no
// keyword matched. A nil result means Phase 2 has no fallback tech defaults
// to fall back on and must proceed with whatever (possibly sparse) data the
// search hits provided.
func InferIndustry(text string) *IndustryDefaults {
	lower := strings.ToLower(text)
	for i, ind := range industryTable {
		for _, kw := range ind.TypicalKeywords {
			if strings.Contains(lower, kw) {
				return &industryTable[i]
			}
		}
	}
	return nil
}

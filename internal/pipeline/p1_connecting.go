package pipeline

import (
	"context"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/prompts"
)

// connectingResult is the JSON contract Phase 1 asks the model for.
type connectingResult struct {
	QueryType       QueryType `json:"query_type"`
	CompanyName     *string   `json:"company_name"`
	JobTitle        *string   `json:"job_title"`
	ExtractedSkills []string  `json:"extracted_skills"`
}

// RunConnecting classifies the incoming query and extracts any structured
// facts it already contains. A malformed response that survives the one
// repair retry is coerced to irrelevant with a parse_failure flag rather
// than aborting the run — classification failure must never crash the
// pipeline.
func RunConnecting(ctx context.Context, deps *Deps, s *State) error {
	model, promptClass, _ := deps.ModelFor(s.ModelClass)

	tpl, err := prompts.Load(PhaseConnecting, promptClass, map[string]string{
		"query": s.Query,
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

	result, _, err := callStructured[connectingResult](ctx, deps, PhaseConnecting, req)
	if err != nil {
		s.QueryType = QueryTypeIrrelevant
		s.AddQualityFlag(FlagParseFailure)
		return nil
	}

	s.QueryType = normalizeQueryType(result.QueryType)
	s.CompanyName = normalizeOptionalString(result.CompanyName)
	s.JobTitle = normalizeOptionalString(result.JobTitle)
	s.ExtractedSkills = normalizeSkills(result.ExtractedSkills)
	return nil
}

func normalizeQueryType(qt QueryType) QueryType {
	switch qt {
	case QueryTypeCompany, QueryTypeJobDescription, QueryTypeIrrelevant, QueryTypeAdversarial:
		return qt
	default:
		return QueryTypeIrrelevant
	}
}

func normalizeOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, raw := range skills {
		lower := strings.ToLower(strings.TrimSpace(raw))
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/prompts"
)

// researchResult is the JSON contract Phase 2's synthesis call asks for.
type researchResult struct {
	EmployerSummary string   `json:"employer_summary"`
	TechStack       []string `json:"tech_stack"`
	Requirements    []string `json:"requirements"`
	CultureSignals  []string `json:"culture_signals"`
}

// RunDeepResearch gathers raw search hits — broad queries on attempt 1,
// verbatim enhancement_queries on attempt 2 — and synthesizes them into a
// structured employer profile. search_attempt is read, never written: the
// router alone mutates it on the ENHANCE_SEARCH edge.
func RunDeepResearch(ctx context.Context, deps *Deps, s *State) error {
	queries := buildSearchQueries(s, deps.MaxSearchQueries)

	rawResults, err := deps.runSearch(ctx, queries)
	var results []SearchResult
	if err != nil {
		s.AddQualityFlag(FlagSearchFailed)
		s.RawSearchResults = nil
	} else {
		for _, r := range rawResults {
			results = append(results, SearchResult{URL: r.URL, Title: r.Title, Snippet: r.Snippet, Score: r.Score})
		}
		s.RawSearchResults = results
	}

	if len(results) == 0 {
		if ind := InferIndustry(researchContext(s)); ind != nil {
			s.AddQualityFlag(FlagInferredIndustry)
			s.TechStack = ind.TypicalTech
		}
		if s.EmployerSummary == "" {
			s.EmployerSummary = "No search results were available; falling back to industry defaults where possible."
		}
		return nil
	}

	model, promptClass, _ := deps.ModelFor(s.ModelClass)
	tpl, err := prompts.Load(PhaseDeepResearch, promptClass, map[string]string{
		"context": researchContext(s),
		"hits":    formatHits(results),
	})
	if err != nil {
		return err
	}

	req := anthropic.MessageRequest{
		Model:     model,
		MaxTokens: 2048,
		Messages: []anthropic.Message{
			{Role: "user", Content: tpl},
		},
	}

	result, _, err := callStructured[researchResult](ctx, deps, PhaseDeepResearch, req)
	if err != nil {
		s.AddQualityFlag(FlagParseFailure)
		return nil
	}

	s.EmployerSummary = result.EmployerSummary
	s.TechStack = dedupeStrings(result.TechStack)
	s.Requirements = result.Requirements
	s.CultureSignals = result.CultureSignals
	return nil
}

// buildSearchQueries derives attempt-1 broad queries from company_name/
// job_title, or returns the verbatim enhancement_queries on a later attempt.
func buildSearchQueries(s *State, maxQueries int) []string {
	if s.SearchAttempt > 0 && len(s.EnhancementQueries) > 0 {
		queries := s.EnhancementQueries
		if len(queries) > maxQueries {
			queries = queries[:maxQueries]
		}
		return queries
	}

	var subject string
	switch {
	case s.CompanyName != nil:
		subject = *s.CompanyName
	case s.JobTitle != nil:
		subject = *s.JobTitle
	default:
		subject = s.Query
	}

	queries := []string{
		fmt.Sprintf("%s tech stack", subject),
		fmt.Sprintf("%s careers engineering", subject),
	}
	if s.JobTitle != nil && s.CompanyName != nil {
		queries = append(queries, fmt.Sprintf("%s %s requirements", *s.CompanyName, *s.JobTitle))
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}

func researchContext(s *State) string {
	var b strings.Builder
	if s.CompanyName != nil {
		b.WriteString("company: " + *s.CompanyName + "\n")
	}
	if s.JobTitle != nil {
		b.WriteString("job_title: " + *s.JobTitle + "\n")
	}
	if b.Len() == 0 {
		b.WriteString("query: " + s.Query + "\n")
	}
	return b.String()
}

func formatHits(results []SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
	}
	return b.String()
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

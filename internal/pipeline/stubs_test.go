package pipeline

import (
	"context"

	"github.com/fitcheck/engine/internal/fetch"
	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/profile"
	"github.com/fitcheck/engine/internal/resilience"
	"github.com/fitcheck/engine/internal/search"
)

// queueLLM returns one canned response per call, in order. The pipeline
// issues LLM calls strictly sequentially (judge fan-out aside, which this
// package keeps at concurrency 1 in tests), so a plain queue is enough to
// drive a whole Run without inspecting request content.
type queueLLM struct {
	responses []string
	calls     int
}

func (q *queueLLM) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if q.calls >= len(q.responses) {
		return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: "{}"}}}, nil
	}
	text := q.responses[q.calls]
	q.calls++
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}, nil
}

func (q *queueLLM) StreamMessage(_ context.Context, _ anthropic.MessageRequest, onDelta func(string) error) (*anthropic.MessageResponse, error) {
	text := "# Fit-Check Report\n"
	if q.calls < len(q.responses) {
		text = q.responses[q.calls]
		q.calls++
	}
	if onDelta != nil {
		if err := onDelta(text); err != nil {
			return nil, err
		}
	}
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}, nil
}

type stubSearch struct {
	results []search.Result
	err     error
}

func (s *stubSearch) Search(_ context.Context, _ []string, _ int) ([]search.Result, error) {
	return s.results, s.err
}

type stubFetch struct {
	doc *fetch.Document
	err error
}

func (f *stubFetch) Fetch(_ context.Context, url string) (*fetch.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := *f.doc
	d.URL = url
	return &d, nil
}

// testDeps builds a Deps wired to stub collaborators with the config
// tunables the spec fixes: MinGapsRequired=2, FundamentalMismatchCap=35,
// MaxJudgeConcurrency=1 (so queueLLM's ordering assumption holds).
func testDeps(llm anthropic.Client, sr *stubSearch, fc *stubFetch) *Deps {
	return &Deps{
		LLM:     llm,
		Search:  sr,
		Fetch:   fc,
		Profile: &profile.Profile{Name: "Test Candidate"},

		Breakers: resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		RetryCfg: resilience.RetryConfig{MaxAttempts: 1},

		ReasoningModel:          "claude-opus-4-6",
		StandardModel:           "claude-sonnet-4-5-20250929",
		ReasoningTimeoutSecs:    30,
		StandardTimeoutSecs:     15,
		MaxSearchQueries:        5,
		MaxFetchURLs:            5,
		MaxJudgeConcurrency:     1,
		MaxEnhancementQueries:   5,
		RerankerAdjustmentBound: 30,
		FundamentalMismatchCap:  35,
		MinGapsRequired:         2,
	}
}

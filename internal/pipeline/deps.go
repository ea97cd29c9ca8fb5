package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fitcheck/engine/internal/fetch"
	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/profile"
	"github.com/fitcheck/engine/internal/prompts"
	"github.com/fitcheck/engine/internal/resilience"
	"github.com/fitcheck/engine/internal/search"
)

// Deps bundles every collaborator and tunable a phase needs. Phases take a
// *Deps rather than importing config/anthropic/search/fetch directly, so
// stub collaborators are easy to substitute in tests.
type Deps struct {
	LLM     anthropic.Client
	Search  search.Client
	Fetch   fetch.Client
	Profile *profile.Profile

	Breakers *resilience.ServiceBreakers
	RetryCfg resilience.RetryConfig

	ReasoningModel         string
	StandardModel          string
	ReasoningTimeoutSecs   int
	StandardTimeoutSecs    int
	MaxSearchQueries       int
	MaxFetchURLs           int
	MaxJudgeConcurrency    int
	MaxEnhancementQueries  int
	RerankerAdjustmentBound int
	FundamentalMismatchCap int
	MinGapsRequired        int
}

// ModelFor returns the model ID and prompt ModelClass a phase should use for
// a given run's ModelClass, plus the per-call timeout budget in seconds.
func (d *Deps) ModelFor(mc ModelClass) (model string, pc prompts.ModelClass, timeoutSecs int) {
	if mc == ModelClassReasoning {
		return d.ReasoningModel, prompts.ModelClassReasoning, d.ReasoningTimeoutSecs
	}
	return d.StandardModel, prompts.ModelClassStandard, d.StandardTimeoutSecs
}

// createMessage issues req through the "anthropic" circuit breaker with
// retry on transient failures, mirroring how the orchestrator layer the
// teacher's own pipeline is built on wraps every external collaborator call.
func (d *Deps) createMessage(ctx context.Context, phase string, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	breaker := d.Breakers.Get("anthropic")
	resp, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, d.RetryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			r, err := d.LLM.CreateMessage(ctx, req)
			if err != nil && resilience.IsTransient(err) {
				return nil, resilience.NewTransientError(err, 0)
			}
			return r, err
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: llm call")
	}
	resp.Usage.LogCost(req.Model, phase)
	return resp, nil
}

// streamMessage issues a streaming call through the circuit breaker only —
// a partially delivered token stream cannot be safely retried from scratch
// without risking duplicate output to the client.
func (d *Deps) streamMessage(ctx context.Context, phase string, req anthropic.MessageRequest, onDelta func(string) error) (*anthropic.MessageResponse, error) {
	breaker := d.Breakers.Get("anthropic")
	resp, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.LLM.StreamMessage(ctx, req, onDelta)
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: llm stream call")
	}
	resp.Usage.LogCost(req.Model, phase)
	return resp, nil
}

// runSearch issues a batch of queries through the "search" circuit breaker.
func (d *Deps) runSearch(ctx context.Context, queries []string) ([]search.Result, error) {
	breaker := d.Breakers.Get("search")
	results, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) ([]search.Result, error) {
		return resilience.DoVal(ctx, d.RetryCfg, func(ctx context.Context) ([]search.Result, error) {
			r, err := d.Search.Search(ctx, queries, d.MaxSearchQueries)
			if err != nil && resilience.IsTransient(err) {
				return nil, resilience.NewTransientError(err, 0)
			}
			return r, err
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: search call")
	}
	return results, nil
}

// fetchURL fetches one URL through the "fetch" circuit breaker, no retry:
// Phase 2c treats any failure as "omit this source" rather than worth
// repeating against a likely-dead or slow page.
func (d *Deps) fetchURL(ctx context.Context, url string) (*fetch.Document, error) {
	breaker := d.Breakers.Get("fetch")
	doc, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*fetch.Document, error) {
		return d.Fetch.Fetch(ctx, url)
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch call")
	}
	return doc, nil
}

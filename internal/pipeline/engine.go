package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// EventSink receives pipeline progress notifications. The engine calls it
// synchronously and in strict order; implementations (the SSE writer) must
// flush on every call and must not block indefinitely, since a slow sink
// stalls the phase issuing it.
type EventSink interface {
	Status(status, message string)
	PhaseStart(phase string)
	PhaseComplete(phase string, data map[string]any)
	Thought(step int, kind, tool, input, content string)
	ResponseChunk(chunk string)
	Complete(durationMs int64, finalStatus string)
	Error(code, message string)
}

// noopSink discards every event; used by callers (and tests) that only care
// about the final State.
type noopSink struct{}

func (noopSink) Status(string, string)                {}
func (noopSink) PhaseStart(string)                    {}
func (noopSink) PhaseComplete(string, map[string]any) {}
func (noopSink) Thought(int, string, string, string, string) {}
func (noopSink) ResponseChunk(string)                 {}
func (noopSink) Complete(int64, string)               {}
func (noopSink) Error(string, string)                 {}

// NoopSink returns an EventSink that discards every event.
func NoopSink() EventSink { return noopSink{} }

// EngineConfig carries the timeout budgets and loop bound the engine
// enforces around phase execution.
type EngineConfig struct {
	MaxSearchAttempts      int
	WholePipelineTimeoutSecs int
}

// Run executes the pipeline for one request from Connecting through to END
// (or a terminal refusal), emitting progress through sink. It updates s in
// place and returns only an error; a non-nil error means a fatal, unrecoverable condition (the
// AGENT_ERROR taxonomy kind) rather than a degraded-but-completed run.
func Run(ctx context.Context, deps *Deps, s *State, cfg EngineConfig, sink EventSink) error {
	start := timeNow()
	budget := time.Duration(cfg.WholePipelineTimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	sink.Status("connecting", "classifying the request")

	phase := PhaseConnecting
	step := 0

	for phase != PhaseEnd {
		select {
		case <-ctx.Done():
			return runTimeoutFallback(s, sink, start)
		default:
		}

		sink.PhaseStart(phase)
		step++

		var err error
		switch phase {
		case PhaseConnecting:
			err = RunConnecting(ctx, deps, s)
			sink.Status("connecting", "classified")
		case PhaseDeepResearch:
			sink.Status("researching", "gathering employer data")
			err = RunDeepResearch(ctx, deps, s)
		case PhaseResearchReranker:
			err = RunResearchReranker(ctx, deps, s, cfg.MaxSearchAttempts)
		case PhaseContentEnrich:
			sink.Status("researching", "enriching top sources")
			err = RunContentEnrich(ctx, deps, s)
		case PhaseSkepticalCompare:
			sink.Status("comparing", "comparing profile against requirements")
			err = RunSkepticalComparison(ctx, deps, s)
		case PhaseSkillsMatching:
			sink.Status("matching", "scoring skills match")
			err = RunSkillsMatching(ctx, deps, s)
		case PhaseConfidenceReranker:
			sink.Status("scoring", "calibrating confidence")
			err = RunConfidenceReranker(ctx, deps, s)
		case PhaseGenerateResults:
			sink.Status("generating", "writing final report")
			err = RunGenerateResults(ctx, deps, s, func(chunk string) error {
				sink.ResponseChunk(chunk)
				return ctx.Err()
			})
		}

		if err != nil {
			if eris.Is(err, context.Canceled) || ctx.Err() != nil {
				return runTimeoutFallback(s, sink, start)
			}
			s.Error = err.Error()
			sink.Error("AGENT_ERROR", err.Error())
			sink.Complete(elapsedMs(start), "error")
			return err
		}

		sink.PhaseComplete(phase, phaseSummary(phase, s))
		phase = Route(s, phase, cfg.MaxSearchAttempts)
	}

	sink.Complete(elapsedMs(start), finalStatus(s))
	return nil
}

// runTimeoutFallback implements the 120s hard ceiling: jump straight to a
// minimal apology report rather than let any phase run further.
func runTimeoutFallback(s *State, sink EventSink, start time.Time) error {
	s.Error = "whole-pipeline timeout exceeded"
	s.FinalReport = "# Fit-Check Incomplete\n\nThis analysis did not complete within its time budget. Partial results were discarded.\n"
	sink.Error("TIMEOUT", s.Error)
	sink.Complete(elapsedMs(start), "timeout")
	return nil
}

func finalStatus(s *State) string {
	if s.Error != "" {
		return "error"
	}
	return "ok"
}

func phaseSummary(phase string, s *State) map[string]any {
	switch phase {
	case PhaseConnecting:
		return map[string]any{"query_type": s.QueryType, "company_name": s.CompanyName, "job_title": s.JobTitle}
	case PhaseDeepResearch:
		return map[string]any{"tech_stack": s.TechStack, "requirements": s.Requirements}
	case PhaseResearchReranker:
		return map[string]any{
			"data_quality_tier":      s.ResearchQualityTier,
			"research_quality_tier":  s.ResearchQualityTier,
			"confidence_score":       s.DataConfidenceScore,
			"recommended_action":     s.RecommendedAction,
		}
	case PhaseContentEnrich:
		return map[string]any{"enriched_count": len(s.EnrichedSources)}
	case PhaseSkepticalCompare:
		return map[string]any{"strengths": len(s.Strengths), "gaps": len(s.Gaps), "risk_assessment": s.RiskAssessment}
	case PhaseSkillsMatching:
		return map[string]any{"match_score": s.MatchScore, "has_fundamental_mismatch": s.HasFundamentalMismatch}
	case PhaseConfidenceReranker:
		return map[string]any{"calibrated_score": s.CalibratedScore, "tier": s.FinalTier}
	case PhaseGenerateResults:
		return map[string]any{"tier": s.FinalTier}
	default:
		return nil
	}
}

var timeNow = func() time.Time { return time.Now() }

func elapsedMs(start time.Time) int64 {
	return timeNow().Sub(start).Milliseconds()
}

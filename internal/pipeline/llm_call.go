package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fitcheck/engine/internal/llm"
	"github.com/fitcheck/engine/internal/llm/anthropic"
)

// callStructured issues req through deps against phase's collaborator call
// path, parses the normalized response text as JSON into T, and retries once
// with a repair prompt on malformed JSON. The second failure is returned to
// the caller, which per the error taxonomy must fall back to an empty
// structured output plus a parse_failure quality flag rather than aborting
// the pipeline.
func callStructured[T any](ctx context.Context, deps *Deps, phase string, req anthropic.MessageRequest) (T, anthropic.TokenUsage, error) {
	var zero T

	resp, err := deps.createMessage(ctx, phase, req)
	if err != nil {
		return zero, anthropic.TokenUsage{}, eris.Wrap(err, "llm call")
	}

	parsed, perr := parseJSON[T](resp.Text())
	if perr == nil {
		return parsed, resp.Usage, nil
	}

	repairReq := req
	repairReq.Messages = append(append([]anthropic.Message{}, req.Messages...), anthropic.Message{
		Role:    "user",
		Content: "Your previous reply was not valid JSON matching the required schema. Reply again with ONLY the JSON object, no prose, no markdown fences.",
	})

	resp2, err := deps.createMessage(ctx, phase, repairReq)
	if err != nil {
		return zero, anthropic.TokenUsage{}, eris.Wrap(err, "llm call: repair attempt")
	}

	parsed2, perr2 := parseJSON[T](resp2.Text())
	if perr2 != nil {
		return zero, resp2.Usage, eris.Wrap(perr2, "llm call: repair attempt also malformed")
	}
	return parsed2, resp2.Usage, nil
}

// parseJSON extracts the first {...} or [...] span from text — LLM output
// commonly wraps the JSON object in prose or markdown code fences — and
// unmarshals it into T.
func parseJSON[T any](text string) (T, error) {
	var zero T
	span := extractJSONSpan(text)
	if span == "" {
		return zero, eris.New("no JSON object found in response")
	}

	var out T
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		return zero, eris.Wrap(err, "unmarshal JSON response")
	}
	return out, nil
}

func extractJSONSpan(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	open, close := byte('{'), byte('}')
	if text[start] == '[' {
		open, close = '[', ']'
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// normalizedText is a thin indirection kept for phases that receive a raw
// content value (e.g. a tool/judge result shaped as `any`) rather than an
// *anthropic.MessageResponse.
func normalizedText(raw any) string {
	return llm.NormalizeContent(raw)
}

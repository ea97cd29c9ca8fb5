// Package prompts selects and renders per-phase prompt templates. Each phase
// ships two variants: verbose (worked examples, step-by-step scaffolding)
// for standard models, and concise (objective + criteria + JSON contract
// only) for reasoning models, which already perform internal chain-of-thought
// and double-reason badly on top of an instructed procedure.
package prompts

import (
	"embed"
	"regexp"

	"github.com/rotisserie/eris"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

// templateBasenames maps a pipeline phase name to the basename its template
// files are stored under (e.g. "templates/p2b_reranker.concise.tpl"). The
// basenames predate the phase constants in state.go and don't match them
// directly, so Load resolves through this table rather than the phase string.
var templateBasenames = map[string]string{
	"connecting":           "p1_connecting",
	"deep_research":        "p2_research",
	"research_reranker":    "p2b_reranker",
	"skeptical_comparison": "p3_comparison",
	"skills_matching":      "p4_matching",
	"confidence_reranker":  "p5b_reranker",
	"generate_results":     "p5_generate",
	"p5_generate_low_data": "p5_generate_low_data",
}

// ModelClass selects which prompt variant a phase should use.
type ModelClass string

const (
	ModelClassReasoning ModelClass = "reasoning"
	ModelClassStandard  ModelClass = "standard"
)

// placeholder matches "<<name>>" substitution parameters. This delimiter was
// chosen deliberately: templates embed literal JSON examples that use `{`
// and `}`, and a `{name}`-style placeholder would be ambiguous against those
// literal braces. "<<...>>" never appears in the JSON contracts we ask
// phases to emit, so there is no escaping logic to get wrong.
var placeholder = regexp.MustCompile(`<<(\w+)>>`)

// Load returns the rendered prompt text for phase, selecting the variant
// appropriate for modelClass. If the concise variant is missing for a phase,
// it falls back to verbose.
func Load(phase string, modelClass ModelClass, params map[string]string) (string, error) {
	variant := "concise"
	if modelClass != ModelClassReasoning {
		variant = "verbose"
	}

	tpl, err := read(phase, variant)
	if err != nil {
		if variant == "concise" {
			tpl, err = read(phase, "verbose")
		}
		if err != nil {
			return "", eris.Wrapf(err, "prompts: no template for phase %q", phase)
		}
	}

	return Render(tpl, params), nil
}

func read(phase, variant string) (string, error) {
	base, ok := templateBasenames[phase]
	if !ok {
		base = phase
	}
	data, err := templatesFS.ReadFile("templates/" + base + "." + variant + ".tpl")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Render substitutes every "<<name>>" placeholder in tpl with params[name],
// leaving unmatched placeholders and all literal JSON content (including its
// braces) untouched.
func Render(tpl string, params map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if v, ok := params[name]; ok {
			return v
		}
		return match
	})
}

package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/cortexnotes/cortex/internal/telemetry"
)

// Decomposition methods reported on multi-hop results.
const (
	DecompositionHeuristic = "heuristic"
	DecompositionLLM       = "llm"
	DecompositionFallback  = "fallback"
)

// compoundMarkers flag a question as compound. Kept as data so the policy
// can be tuned and tested independently of the orchestration logic.
var compoundMarkers = []string{
	" and ", " then ", " as well as ", " in addition to ", ", ", "; ",
	" after ", " before ", " because ", " so that ",
	" affect ", " relationship ", " both ", " compare ", " contrast ",
}

// splitMarkers is the subset of markers safe to split on. Topical markers
// like "compare" signal a compound question but don't mark a clause boundary.
var splitMarkers = []string{
	" and ", " then ", " as well as ", " in addition to ", ", ", "; ",
	" after ", " before ", " because ", " so that ",
}

var interrogatives = []string{"how", "what", "why", "when"}

var listNumbering = regexp.MustCompile(`^\d+\.\s*`)

// Decomposer splits compound questions into independent sub-questions,
// heuristically first and via the generative model when heuristics find
// nothing to split.
type Decomposer struct {
	generator Generator
}

// NewDecomposer creates a new Decomposer instance
func NewDecomposer(generator Generator) *Decomposer {
	return &Decomposer{generator: generator}
}

// IsCompound reports whether the question looks like it needs more than one
// retrieval pass. All checks are case-insensitive.
func (d *Decomposer) IsCompound(question string) bool {
	if strings.Count(question, "?") > 1 {
		return true
	}

	lower := strings.ToLower(question)
	for _, marker := range compoundMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	if strings.Contains(lower, ",") {
		for _, word := range interrogatives {
			if strings.Contains(lower, word) {
				return true
			}
		}
	}

	return false
}

// Decompose returns the sub-questions of a compound question together with
// the method that produced them. It never fails: when both the heuristic
// split and the model fall through, the original question comes back as the
// single sub-question.
func (d *Decomposer) Decompose(ctx context.Context, question string) ([]string, string) {
	subQuestions := heuristicSplit(question)
	if len(subQuestions) > 1 {
		return subQuestions, DecompositionHeuristic
	}

	subQuestions, err := d.llmDecompose(ctx, question)
	if err != nil || len(subQuestions) == 0 {
		if err != nil {
			telemetry.CaptureError(ctx, err)
		}
		return []string{question}, DecompositionFallback
	}
	return subQuestions, DecompositionLLM
}

// heuristicSplit cuts the question at connective markers, case-insensitively,
// dropping empty fragments.
func heuristicSplit(question string) []string {
	parts := []string{question}
	for _, marker := range splitMarkers {
		var next []string
		for _, part := range parts {
			next = append(next, splitCaseInsensitive(part, marker)...)
		}
		parts = next
	}

	var subQuestions []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			subQuestions = append(subQuestions, trimmed)
		}
	}
	return subQuestions
}

func splitCaseInsensitive(s, sep string) []string {
	lower := strings.ToLower(s)
	var parts []string
	for {
		i := strings.Index(lower, sep)
		if i < 0 {
			parts = append(parts, s)
			return parts
		}
		parts = append(parts, s[:i])
		s = s[i+len(sep):]
		lower = lower[i+len(sep):]
	}
}

// llmDecompose asks the model for a numbered list of sub-questions and
// strips the numbering.
func (d *Decomposer) llmDecompose(ctx context.Context, question string) ([]string, error) {
	prompt := "Decompose the following question into a list of simpler sub-questions needed to answer it. " +
		"Return only a numbered list, one sub-question per line.\n\nQuestion: " + question + "\n\nList:"

	response, err := d.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var subQuestions []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.Trim(strings.TrimSpace(line), " .")
		if line == "" {
			continue
		}
		subQuestions = append(subQuestions, listNumbering.ReplaceAllString(line, ""))
	}
	return subQuestions, nil
}

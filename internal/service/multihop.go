package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/telemetry"
)

const chunkPreviewLength = 100

// FallbackSynthesisAnswer is returned when synthesis fails and no sub-answer
// exists to fall back to.
const FallbackSynthesisAnswer = "I couldn't generate a complete answer."

// StepTrace records one sub-question execution for observability. It is
// diagnostic only and never persisted.
type StepTrace struct {
	Step             int      `json:"step"`
	SubQuestion      string   `json:"sub_question"`
	Answer           string   `json:"answer"`
	ChunksFound      int      `json:"chunks_found"`
	ChunkPreviews    []string `json:"chunk_previews"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

// AnswererInterface defines the single-hop answering interface consumed by
// the orchestrator.
type AnswererInterface interface {
	Answer(ctx context.Context, question string, scope domain.Scope, topK int) (*QueryResult, error)
}

// DecomposerInterface defines the question decomposition interface.
type DecomposerInterface interface {
	IsCompound(question string) bool
	Decompose(ctx context.Context, question string) ([]string, string)
}

// Orchestrator routes questions through single-hop or multi-hop answering.
// Compound questions are decomposed, each sub-question answered strictly
// sequentially, and the sub-answers synthesized into one final answer.
// Sequential execution keeps step traces progressive and latency ordering
// deterministic; sub-questions are independent of each other.
type Orchestrator struct {
	answerer   AnswererInterface
	decomposer DecomposerInterface
	generator  Generator
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(answerer AnswererInterface, decomposer DecomposerInterface, generator Generator) *Orchestrator {
	return &Orchestrator{
		answerer:   answerer,
		decomposer: decomposer,
		generator:  generator,
	}
}

// Query answers a question, multi-hop when compound. It always returns some
// result: internal faults are translated into the answer text.
func (o *Orchestrator) Query(ctx context.Context, question string, scope domain.Scope, topK int) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.Query", telemetry.SpanAttributes{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Operation:  "query",
	})
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	if !o.decomposer.IsCompound(question) {
		result, err := o.answerer.Answer(ctx, question, scope, topK)
		if err != nil {
			return nil, err
		}
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result, nil
	}

	subQuestions, method := o.decomposer.Decompose(ctx, question)

	var (
		steps      []*StepTrace
		allChunks  []*ScoredChunk
		subAnswers []string
	)

	for i, subQ := range subQuestions {
		stepStart := time.Now()
		res, err := o.answerer.Answer(ctx, subQ, scope, topK)
		if err != nil {
			return nil, err
		}

		previews := make([]string, 0, len(res.Chunks))
		for _, sc := range res.Chunks {
			previews = append(previews, preview(sc.Chunk.Content))
		}

		allChunks = append(allChunks, res.Chunks...)
		subAnswers = append(subAnswers, res.Answer)

		steps = append(steps, &StepTrace{
			Step:             i + 1,
			SubQuestion:      subQ,
			Answer:           res.Answer,
			ChunksFound:      len(res.Chunks),
			ChunkPreviews:    previews,
			ProcessingTimeMs: time.Since(stepStart).Milliseconds(),
		})
	}

	answer := o.synthesize(ctx, question, subAnswers)

	if allChunks == nil {
		allChunks = []*ScoredChunk{}
	}
	return &QueryResult{
		Answer:              answer,
		Chunks:              allChunks,
		IsMultihop:          true,
		DecompositionMethod: method,
		Steps:               steps,
		ProcessingTimeMs:    time.Since(start).Milliseconds(),
	}, nil
}

// synthesize merges the sub-answers into one coherent answer. On failure it
// falls back to the first sub-answer rather than failing the whole query.
func (o *Orchestrator) synthesize(ctx context.Context, question string, subAnswers []string) string {
	var b strings.Builder
	b.WriteString("Original question: ")
	b.WriteString(question)
	b.WriteString("\nSub-answers:\n")
	for _, a := range subAnswers {
		b.WriteString("- ")
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteString("\nCombine these into a single, clear, and complete answer.")

	answer, err := o.generator.Generate(ctx, b.String())
	if err != nil {
		log.Printf("orchestrator: synthesis failed, returning first sub-answer: %v", err)
		telemetry.CaptureError(ctx, err)
		if len(subAnswers) > 0 {
			return subAnswers[0]
		}
		return FallbackSynthesisAnswer
	}
	return answer
}

// preview shortens chunk text for step traces, cutting on a rune boundary so
// multi-byte characters are never split.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) > chunkPreviewLength {
		return string(runes[:chunkPreviewLength]) + "..."
	}
	return text
}

package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/telemetry"
	"github.com/cortexnotes/cortex/internal/token"
)

const (
	// NoMaterialAnswer is returned when retrieval finds nothing in scope and
	// ungrounded answering is disabled.
	NoMaterialAnswer = "I couldn't find relevant material in your documents."

	// DegradedAnswer is returned when the generative model call fails.
	// Generation failure degrades to a user-visible message, never a fault.
	DegradedAnswer = "I apologize, but I encountered an error while generating the answer."

	// MaxContextTokens bounds the assembled context block. A large topK over
	// full-size chunks must not ship an arbitrarily long prompt; lower-ranked
	// chunks are the ones cut.
	MaxContextTokens = 3000
)

// Generator defines the generative-model interface used for answering,
// decomposition, and synthesis. It is fallible and latent by nature.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QueryResult is the outcome of one query: the answer text plus the chunks
// that grounded it. Multi-hop queries additionally carry step traces.
type QueryResult struct {
	Answer              string         `json:"answer"`
	Chunks              []*ScoredChunk `json:"chunks"`
	IsMultihop          bool           `json:"is_multihop"`
	DecompositionMethod string         `json:"decomposition_method,omitempty"`
	Steps               []*StepTrace   `json:"steps,omitempty"`
	ProcessingTimeMs    int64          `json:"processing_time_ms"`
}

// AnswererConfig controls single-hop answering behavior.
type AnswererConfig struct {
	// Ungrounded, when true, still asks the model when retrieval comes back
	// empty instead of returning NoMaterialAnswer.
	Ungrounded bool
}

// RetrieverInterface defines the retrieval interface consumed by answering.
type RetrieverInterface interface {
	Retrieve(ctx context.Context, question string, scope domain.Scope, topK int, threshold float64) ([]*ScoredChunk, error)
}

// Answerer answers a single question: retrieve, assemble context, generate.
type Answerer struct {
	retriever RetrieverInterface
	generator Generator
	cfg       AnswererConfig
}

// NewAnswerer creates a new Answerer instance
func NewAnswerer(retriever RetrieverInterface, generator Generator) *Answerer {
	return NewAnswererWithConfig(retriever, generator, AnswererConfig{})
}

// NewAnswererWithConfig creates a new Answerer with explicit configuration.
func NewAnswererWithConfig(retriever RetrieverInterface, generator Generator, cfg AnswererConfig) *Answerer {
	return &Answerer{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
	}
}

// Answer runs one single-hop query. It never propagates a generation error:
// the result's Answer communicates failures instead.
func (a *Answerer) Answer(ctx context.Context, question string, scope domain.Scope, topK int) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Answerer.Answer", telemetry.SpanAttributes{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Operation:  "answer",
	})
	defer span.End()

	chunks, err := a.retriever.Retrieve(ctx, question, scope, topK, ThresholdDefault)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 && !a.cfg.Ungrounded {
		return &QueryResult{Answer: NoMaterialAnswer, Chunks: []*ScoredChunk{}}, nil
	}

	prompt := buildAnswerPrompt(question, chunks)

	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("answerer: generation failed: %v", err)
		telemetry.CaptureError(ctx, err)
		answer = DegradedAnswer
	}

	if chunks == nil {
		chunks = []*ScoredChunk{}
	}
	return &QueryResult{Answer: answer, Chunks: chunks}, nil
}

// buildAnswerPrompt concatenates chunk texts with lightweight source labels
// into a context block capped at MaxContextTokens. Chunks arrive ordered by
// descending similarity, so truncation drops the weakest material first.
// Without chunks it produces an ungrounded prompt.
func buildAnswerPrompt(question string, chunks []*ScoredChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("Please answer the question accurately and concisely.\n\nQuestion: %s\n\nAnswer:", question)
	}

	parts := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", sourceLabel(sc.Chunk), sc.Chunk.Content))
	}
	contextText := token.Truncate(strings.Join(parts, "\n\n"), MaxContextTokens)

	return fmt.Sprintf(
		"Based on the following context, please answer the question. If the context doesn't contain enough information to answer the question, say so.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		contextText, question,
	)
}

func sourceLabel(c *domain.Chunk) string {
	switch c.SourceType() {
	case domain.SourceTypeImage:
		return "Image Analysis"
	case domain.SourceTypePDF:
		if page := c.Page(); page != "" {
			return "PDF Content - Page " + page
		}
		return "PDF Content"
	default:
		return "Document Content"
	}
}

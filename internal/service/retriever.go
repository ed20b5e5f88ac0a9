package service

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/telemetry"
)

const (
	// DefaultTopK is the result cap when the caller does not specify one.
	DefaultTopK = 5

	// DefaultSimilarityThreshold is the minimum cosine similarity a chunk
	// must reach to be considered relevant.
	DefaultSimilarityThreshold = 0.30

	// ThresholdDefault asks Retrieve to apply the configured cutoff. Zero is
	// a legal explicit threshold (keep every non-negative similarity), so the
	// sentinel has to be negative.
	ThresholdDefault = -1.0

	// zeroNormEps guards the defensive normalization of stored vectors.
	// Anything below this is skipped rather than divided by zero.
	zeroNormEps = 1e-8
)

// ScoredChunk is a retrieval result: a chunk plus its cosine similarity to
// the query, always within [-1, 1].
type ScoredChunk struct {
	Chunk      *domain.Chunk
	Similarity float64
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	Store(ctx context.Context, chunks []*domain.Chunk) error
	Scan(ctx context.Context, scope domain.Scope) ([]*domain.Chunk, error)
	SearchNative(ctx context.Context, embedding []float32, scope domain.Scope, topK int, threshold float64) ([]*ScoredChunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	LinkDocument(ctx context.Context, scope domain.Scope, documentID string) (int64, error)
	DeleteByDocument(ctx context.Context, userID, documentID string) (int64, error)
	DeleteByNotebook(ctx context.Context, userID, notebookID string) (int64, error)
}

// EmbedderInterface defines the interface for embedding generation
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RetrieverConfig controls ranking behavior.
type RetrieverConfig struct {
	// Native delegates filtering and ranking to the store's vector
	// operator. When false, ranking happens client-side over a scoped scan.
	Native bool

	// Threshold is the similarity cutoff applied when a caller passes
	// ThresholdDefault.
	Threshold float64
}

// DefaultRetrieverConfig returns the default retriever configuration.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		Native:    true,
		Threshold: DefaultSimilarityThreshold,
	}
}

// Retriever ranks scoped chunks by cosine similarity to a question.
type Retriever struct {
	chunkRepo ChunkRepositoryInterface
	embedder  EmbedderInterface
	cfg       RetrieverConfig
}

// NewRetriever creates a new Retriever instance
func NewRetriever(chunkRepo ChunkRepositoryInterface, embedder EmbedderInterface) *Retriever {
	return NewRetrieverWithConfig(chunkRepo, embedder, DefaultRetrieverConfig())
}

// NewRetrieverWithConfig creates a new Retriever with explicit configuration.
func NewRetrieverWithConfig(chunkRepo ChunkRepositoryInterface, embedder EmbedderInterface, cfg RetrieverConfig) *Retriever {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultSimilarityThreshold
	}
	return &Retriever{
		chunkRepo: chunkRepo,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// Retrieve embeds the question and returns the chunks in scope whose
// similarity meets the threshold, ordered by descending similarity, at most
// topK of them. A negative threshold selects the configured default; an
// explicit 0.0 keeps every chunk with non-negative similarity. An empty
// result is not an error: it signals that no grounding is available.
func (r *Retriever) Retrieve(ctx context.Context, question string, scope domain.Scope, topK int, threshold float64) ([]*ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Operation:  "retrieve",
	})
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold < 0 {
		threshold = r.cfg.Threshold
	}

	queryEmbedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	if r.cfg.Native {
		return r.chunkRepo.SearchNative(ctx, queryEmbedding, scope, topK, threshold)
	}
	return r.retrieveClientSide(ctx, queryEmbedding, scope, topK, threshold)
}

// retrieveClientSide is the linear-scan path for stores without a vector
// operator. Stored vectors are normalized defensively; vectors whose width
// disagrees with the query are re-embedded on the fly so that chunks written
// under an older embedding model stay comparable.
func (r *Retriever) retrieveClientSide(ctx context.Context, queryEmbedding []float32, scope domain.Scope, topK int, threshold float64) ([]*ScoredChunk, error) {
	candidates, err := r.chunkRepo.Scan(ctx, scope)
	if err != nil {
		return nil, err
	}

	query, ok := normalizeFloat64(queryEmbedding)
	if !ok {
		return nil, domain.ErrZeroEmbedding
	}

	var results []*ScoredChunk
	for _, c := range candidates {
		stored := c.Embedding
		if len(stored) != len(queryEmbedding) {
			stored, err = r.reembed(ctx, c)
			if err != nil {
				log.Printf("retriever: re-embedding chunk %s failed, skipping: %v", c.ID, err)
				continue
			}
		}

		vec, ok := normalizeFloat64(stored)
		if !ok {
			continue
		}

		similarity := 0.0
		for i := range query {
			similarity += query[i] * vec[i]
		}
		similarity = math.Max(-1, math.Min(1, similarity))

		if similarity >= threshold {
			results = append(results, &ScoredChunk{Chunk: c, Similarity: similarity})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// reembed replaces a stale-width vector with a fresh one and persists it
// best-effort so the mismatch is repaired rather than recomputed every query.
func (r *Retriever) reembed(ctx context.Context, c *domain.Chunk) ([]float32, error) {
	fresh, err := r.embedder.Embed(ctx, c.Content)
	if err != nil {
		return nil, err
	}
	if err := r.chunkRepo.UpdateEmbedding(ctx, c.ID, fresh); err != nil {
		log.Printf("retriever: persisting re-embedded chunk %s failed: %v", c.ID, err)
	}
	c.Embedding = fresh
	return fresh, nil
}

// normalizeFloat64 returns the unit vector in float64 precision, or ok=false
// when the norm is too close to zero to divide safely.
func normalizeFloat64(v []float32) ([]float64, bool) {
	var sum float64
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
		sum += out[i] * out[i]
	}
	norm := math.Sqrt(sum)
	if norm < zeroNormEps {
		return nil, false
	}
	for i := range out {
		out[i] /= norm
	}
	return out, true
}

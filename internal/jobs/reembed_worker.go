package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cortexnotes/cortex/internal/domain"
)

const (
	// DefaultBatchSize bounds how many stale chunks one pass repairs.
	DefaultBatchSize = 50
)

// ChunkMigrationRepository defines the chunk persistence surface the
// re-embedding worker needs.
type ChunkMigrationRepository interface {
	// ListWidthMismatch returns chunks whose stored vector width differs
	// from the expected width, oldest first.
	ListWidthMismatch(ctx context.Context, width, limit int) ([]*domain.Chunk, error)

	// UpdateEmbedding replaces a chunk's vector.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Embedder defines the interface for generating embeddings
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ReembedWorker migrates chunks written under an older embedding model to
// the current vector width. Queries repair mismatches on the fly; this
// worker drains the backlog so they stop paying that cost.
type ReembedWorker struct {
	repo      ChunkMigrationRepository
	embedder  Embedder
	width     int
	batchSize int
}

// NewReembedWorker creates a new ReembedWorker instance
func NewReembedWorker(repo ChunkMigrationRepository, embedder Embedder) *ReembedWorker {
	return &ReembedWorker{
		repo:      repo,
		embedder:  embedder,
		width:     domain.EmbeddingDimensions,
		batchSize: DefaultBatchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReembedWorker) ProcessJobs(ctx context.Context) error {
	chunks, err := w.repo.ListWidthMismatch(ctx, w.width, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale chunks: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("Re-embedding %d stale chunks", len(chunks))

	for _, chunk := range chunks {
		if err := w.processChunk(ctx, chunk); err != nil {
			log.Printf("Error re-embedding chunk %s: %v", chunk.ID, err)
		}
	}

	return nil
}

func (w *ReembedWorker) processChunk(ctx context.Context, chunk *domain.Chunk) error {
	embedding, err := w.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	if err := w.repo.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}

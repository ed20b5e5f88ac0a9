package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists chunks and their embeddings, and implements the
// store-side ("native") vector search path on pgvector.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Store upserts chunks by id. Writes are per-row independent and idempotent,
// so concurrent ingestion never needs cross-row locking.
func (r *ChunkRepository) Store(ctx context.Context, chunks []*domain.Chunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, user_id, notebook_id, document_id, content, tokens, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				tokens = EXCLUDED.tokens,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			c.ID,
			c.UserID,
			nullableString(c.NotebookID),
			nullableString(c.DocumentID),
			c.Content,
			c.Tokens,
			pgvector.NewVector(c.Embedding),
			c.Metadata,
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Scan returns every chunk with a non-null embedding inside the scope, for
// the client-side ranking path.
func (r *ChunkRepository) Scan(ctx context.Context, scope domain.Scope) ([]*domain.Chunk, error) {
	query := `SELECT id, user_id, notebook_id, document_id, content, tokens, embedding, metadata, created_at
		 FROM chunks
		 WHERE user_id = $1 AND embedding IS NOT NULL`
	args := []any{scope.UserID}

	if scope.NotebookID != "" {
		args = append(args, scope.NotebookID)
		query += ` AND notebook_id = $2`
	}
	if scope.DocumentID != "" {
		args = append(args, scope.DocumentID)
		if scope.NotebookID != "" {
			query += ` AND document_id = $3`
		} else {
			query += ` AND document_id = $2`
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

// SearchNative delegates filtering, cosine-distance computation, and ranking
// to pgvector. Cutoff and ordering match the client-side path:
// similarity = 1 - cosine distance, kept when >= threshold.
func (r *ChunkRepository) SearchNative(ctx context.Context, embedding []float32, scope domain.Scope, topK int, threshold float64) ([]*service.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(embedding)

	query := `SELECT id, user_id, notebook_id, document_id, content, tokens, embedding, metadata, created_at,
			1 - (embedding <=> $1) AS similarity
		 FROM chunks
		 WHERE user_id = $2 AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3`
	args := []any{vec, scope.UserID, threshold}

	if scope.NotebookID != "" {
		args = append(args, scope.NotebookID)
		query += ` AND notebook_id = $4`
	}
	if scope.DocumentID != "" {
		args = append(args, scope.DocumentID)
		if scope.NotebookID != "" {
			query += ` AND document_id = $5`
		} else {
			query += ` AND document_id = $4`
		}
	}

	args = append(args, topK)
	query += ` ORDER BY embedding <=> $1 LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.ScoredChunk, 0, topK)
	for rows.Next() {
		var c domain.Chunk
		var notebookID, documentID *string
		var vec pgvector.Vector
		var similarity float64
		if err := rows.Scan(&c.ID, &c.UserID, &notebookID, &documentID, &c.Content, &c.Tokens, &vec, &c.Metadata, &c.CreatedAt, &similarity); err != nil {
			return nil, err
		}
		if notebookID != nil {
			c.NotebookID = *notebookID
		}
		if documentID != nil {
			c.DocumentID = *documentID
		}
		c.Embedding = vec.Slice()
		results = append(results, &service.ScoredChunk{Chunk: &c, Similarity: similarity})
	}

	return results, rows.Err()
}

// UpdateEmbedding replaces a single chunk's vector, used by the re-embedding
// migration worker.
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// ListWidthMismatch returns chunks whose stored vector width differs from
// width, oldest first, for batch re-embedding.
func (r *ChunkRepository) ListWidthMismatch(ctx context.Context, width, limit int) ([]*domain.Chunk, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, notebook_id, document_id, content, tokens, embedding, metadata, created_at
		 FROM chunks
		 WHERE embedding IS NOT NULL AND vector_dims(embedding) <> $1
		 ORDER BY created_at
		 LIMIT $2`,
		width, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

// LinkDocument back-fills document_id on scope chunks created before their
// owning document row existed. Returns the number of chunks linked.
func (r *ChunkRepository) LinkDocument(ctx context.Context, scope domain.Scope, documentID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE chunks SET document_id = $1
		 WHERE user_id = $2 AND notebook_id = $3 AND document_id IS NULL`,
		documentID, scope.UserID, scope.NotebookID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByDocument removes a document's chunks (cascade from document delete).
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, userID, documentID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE user_id = $1 AND document_id = $2`,
		userID, documentID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByNotebook removes a notebook's chunks (cascade from notebook delete).
func (r *ChunkRepository) DeleteByNotebook(ctx context.Context, userID, notebookID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE user_id = $1 AND notebook_id = $2`,
		userID, notebookID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var notebookID, documentID *string
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.UserID, &notebookID, &documentID, &c.Content, &c.Tokens, &vec, &c.Metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		if notebookID != nil {
			c.NotebookID = *notebookID
		}
		if documentID != nil {
			c.DocumentID = *documentID
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

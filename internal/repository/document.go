package repository

import (
	"context"
	"errors"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, user_id, notebook_id, filename, source_type, status, storage_key, chunk_count, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.UserID, d.NotebookID, d.Filename, string(d.SourceType), string(d.Status),
		nullableString(d.StorageKey), d.ChunkCount, nullableString(d.Error), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, notebook_id, filename, source_type, status, storage_key, chunk_count, error, created_at, updated_at
		 FROM documents WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) ListByNotebook(ctx context.Context, userID, notebookID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, notebook_id, filename, source_type, status, storage_key, chunk_count, error, created_at, updated_at
		 FROM documents WHERE user_id = $1 AND notebook_id = $2 ORDER BY created_at`,
		userID, notebookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// MarkReady records a successful ingestion together with the number of chunks
// the document produced.
func (r *DocumentRepository) MarkReady(ctx context.Context, id string, chunkCount int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, chunk_count = $2, error = NULL, updated_at = now() WHERE id = $3`,
		string(domain.DocumentStatusReady), chunkCount, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkFailed records an ingestion failure with the failure reason.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, error = $2, updated_at = now() WHERE id = $3`,
		string(domain.DocumentStatusFailed), nullableString(reason), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		d          domain.Document
		sourceType string
		status     string
		storageKey *string
		errMsg     *string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.NotebookID, &d.Filename, &sourceType, &status,
		&storageKey, &d.ChunkCount, &errMsg, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.SourceType = domain.SourceType(sourceType)
	d.Status = domain.DocumentStatus(status)
	if storageKey != nil {
		d.StorageKey = *storageKey
	}
	if errMsg != nil {
		d.Error = *errMsg
	}
	return &d, nil
}

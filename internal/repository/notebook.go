package repository

import (
	"context"
	"errors"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotebookRepository struct {
	db dbtx
}

func NewNotebookRepository(pool *pgxpool.Pool) *NotebookRepository {
	return &NotebookRepository{db: pool}
}

func NewNotebookRepositoryWithTx(tx pgx.Tx) *NotebookRepository {
	return &NotebookRepository{db: tx}
}

func (r *NotebookRepository) Create(ctx context.Context, n *domain.Notebook) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notebooks (id, user_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.UserID, n.Name, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

func (r *NotebookRepository) GetByID(ctx context.Context, userID, id string) (*domain.Notebook, error) {
	var n domain.Notebook
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM notebooks WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&n.ID, &n.UserID, &n.Name, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotebookNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotebookRepository) GetByName(ctx context.Context, userID, name string) (*domain.Notebook, error) {
	var n domain.Notebook
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM notebooks WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&n.ID, &n.UserID, &n.Name, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotebookNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotebookRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notebook, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM notebooks WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notebooks []*domain.Notebook
	for rows.Next() {
		var n domain.Notebook
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notebooks = append(notebooks, &n)
	}
	return notebooks, rows.Err()
}

func (r *NotebookRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notebooks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotebookNotFound
	}
	return nil
}

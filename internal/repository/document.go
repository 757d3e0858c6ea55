package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowledgerelay/relay/internal/domain"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.DocumentEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO document_entries (id, project_id, file_name, storage_key, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.ProjectID, d.FileName, d.StorageKey, d.UploadedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.DocumentEntry, error) {
	var d domain.DocumentEntry
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, file_name, storage_key, uploaded_at
		 FROM document_entries WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.ProjectID, &d.FileName, &d.StorageKey, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.DocumentEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, file_name, storage_key, uploaded_at
		 FROM document_entries WHERE project_id = $1 ORDER BY uploaded_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.DocumentEntry
	for rows.Next() {
		var d domain.DocumentEntry
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.FileName, &d.StorageKey, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/pagination"
	"github.com/knowledgerelay/relay/internal/service"
)

const pgUniqueViolation = "23505"

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		project.ID, project.Name, nullable(project.Description), project.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrProjectAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	var description *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	p.Description = deref(description)
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.ProjectPage, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, name, description, created_at FROM projects
		ORDER BY created_at DESC, id DESC LIMIT $1`
	args := []interface{}{limit + 1}
	if cursor != nil {
		query = `SELECT id, name, description, created_at FROM projects
			WHERE (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var p domain.Project
		var description *string
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Description = deref(description)
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &service.ProjectPage{Items: projects}
	if len(projects) > limit {
		page.Items = projects[:limit]
		page.HasMore = true
		last := page.Items[limit-1]
		page.Cursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return page, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// Shared scan helpers; repositories map "" to NULL and back.

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

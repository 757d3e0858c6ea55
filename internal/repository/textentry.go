package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowledgerelay/relay/internal/domain"
)

type TextEntryRepository struct {
	pool *pgxpool.Pool
}

func NewTextEntryRepository(pool *pgxpool.Pool) *TextEntryRepository {
	return &TextEntryRepository{pool: pool}
}

func (r *TextEntryRepository) Create(ctx context.Context, e *domain.TextEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO text_entries (id, project_id, document_entry_id, question, answer, source_context, is_interview, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ProjectID, nullable(e.DocumentID), nullable(e.Question),
		nullable(e.Answer), nullable(e.SourceContext), e.IsInterview, e.CreatedAt,
	)
	return err
}

func (r *TextEntryRepository) GetByID(ctx context.Context, id string) (*domain.TextEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, project_id, document_entry_id, question, answer, source_context, is_interview, created_at
		 FROM text_entries WHERE id = $1`,
		id,
	)
	entry, err := scanTextEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// UpdateAnswer performs the single atomic update that moves an entry out of
// the pending state. A second update against the same entry finds answer
// already set and reports a conflict instead of overwriting.
func (r *TextEntryRepository) UpdateAnswer(ctx context.Context, id, answer string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE text_entries
		 SET answer = $2, source_context = COALESCE(source_context, $2)
		 WHERE id = $1 AND answer IS NULL`,
		id, answer,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrEntryAnswered
	}
	return nil
}

// ListPending returns unanswered questions oldest-first. With a document id
// it returns that document's pending questions; without one it returns the
// project-wide interview backlog, which deliberately excludes questions tied
// to a document so they are not surfaced in the project interview.
func (r *TextEntryRepository) ListPending(ctx context.Context, projectID, documentID string) ([]*domain.TextEntry, error) {
	query := `SELECT id, project_id, document_entry_id, question, answer, source_context, is_interview, created_at
		 FROM text_entries
		 WHERE project_id = $1 AND question IS NOT NULL AND answer IS NULL
		   AND is_interview AND document_entry_id IS NULL
		 ORDER BY created_at ASC, id ASC`
	args := []interface{}{projectID}
	if documentID != "" {
		query = `SELECT id, project_id, document_entry_id, question, answer, source_context, is_interview, created_at
		 FROM text_entries
		 WHERE project_id = $1 AND question IS NOT NULL AND answer IS NULL
		   AND document_entry_id = $2
		 ORDER BY created_at ASC, id ASC`
		args = append(args, documentID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TextEntry
	for rows.Next() {
		entry, err := scanTextEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTextEntry(row rowScanner) (*domain.TextEntry, error) {
	var e domain.TextEntry
	var documentID, question, answer, sourceContext *string
	err := row.Scan(&e.ID, &e.ProjectID, &documentID, &question, &answer, &sourceContext, &e.IsInterview, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.DocumentID = deref(documentID)
	e.Question = deref(question)
	e.Answer = deref(answer)
	e.SourceContext = deref(sourceContext)
	return &e, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowledgerelay/relay/internal/domain"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	history, err := marshalHistory(s.History)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO project_sessions (id, project_id, status, current_entry_id, question_index, history, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.ProjectID, string(s.Status), nullable(s.CurrentEntryID),
		s.QuestionIndex, history, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	var status string
	var currentEntryID *string
	var history []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, status, current_entry_id, question_index, history, created_at, updated_at
		 FROM project_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ProjectID, &status, &currentEntryID, &s.QuestionIndex, &history, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	s.Status = domain.SessionStatus(status)
	s.CurrentEntryID = deref(currentEntryID)
	if err := json.Unmarshal(history, &s.History); err != nil {
		return nil, fmt.Errorf("failed to decode session history: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	history, err := marshalHistory(s.History)
	if err != nil {
		return err
	}
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE project_sessions
		 SET status = $2, current_entry_id = $3, question_index = $4, history = $5, updated_at = $6
		 WHERE id = $1`,
		s.ID, string(s.Status), nullable(s.CurrentEntryID), s.QuestionIndex, history, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func marshalHistory(history []domain.QAExchange) ([]byte, error) {
	if history == nil {
		history = []domain.QAExchange{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session history: %w", err)
	}
	return data, nil
}

package service

import (
	"context"
	"log"
	"time"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/pagination"
)

// ProjectRepositoryInterface defines the repository interface for project persistence
type ProjectRepositoryInterface interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) (*ProjectPage, error)
	Delete(ctx context.Context, id string) error
}

// ProjectPage is one page of a cursor-paginated project listing
type ProjectPage struct {
	Items   []*domain.Project
	Cursor  string
	HasMore bool
}

// ProjectService handles project lifecycle including the paired vector
// collection
type ProjectService struct {
	repo    ProjectRepositoryInterface
	index   *IndexManager
	uuidGen UUIDGenerator
}

// NewProjectService creates a new ProjectService instance
func NewProjectService(repo ProjectRepositoryInterface, index *IndexManager) *ProjectService {
	return &ProjectService{
		repo:    repo,
		index:   index,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// WithUUIDGen replaces the id generator (for testing)
func (s *ProjectService) WithUUIDGen(gen UUIDGenerator) *ProjectService {
	s.uuidGen = gen
	return s
}

// Create registers a new project namespace. The vector collection needs no
// explicit creation; it materializes on first indexed document.
func (s *ProjectService) Create(ctx context.Context, name, description string) (*domain.Project, error) {
	project := domain.NewProject(s.uuidGen.NewString(), name, description, time.Now().UTC())
	if err := domain.ValidateProject(project); err != nil {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeValidation,
			Message: err.Error(),
			Err:     err,
		}
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Get returns one project by id
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of projects, newest first
func (s *ProjectService) List(ctx context.Context, cursorToken string, limit int) (*ProjectPage, error) {
	var cursor *pagination.Cursor
	if cursorToken != "" {
		decoded, err := pagination.DecodeCursor(cursorToken)
		if err != nil {
			return nil, &domain.DomainError{
				Code:    domain.ErrCodeValidation,
				Message: "invalid cursor",
				Err:     err,
			}
		}
		cursor = decoded
	}
	return s.repo.List(ctx, cursor, limit)
}

// Delete removes the project, its relational descendants via cascade, and
// then its vector collection. Relational deletion commits first; a failed
// collection drop leaves orphaned embeddings, which is logged rather than
// rolled back since the two stores are not transactionally joined.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.index.DropCollection(ctx, id); err != nil {
		log.Printf("level=warn msg=\"orphaned vector collection after project delete\" project_id=%s error=%v", id, err)
	}
	return nil
}

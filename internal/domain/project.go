package domain

import (
	"fmt"
	"time"
)

// Project is the namespace that owns all knowledge. Deleting a project
// cascades to its documents, entries, sessions and its vector collection.
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// NewProject creates a new Project instance
func NewProject(id, name, description string, createdAt time.Time) *Project {
	return &Project{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
	}
}

// ValidateProject validates a Project instance
func ValidateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}

	if p.Name == "" {
		return fmt.Errorf("project Name is required")
	}

	return nil
}

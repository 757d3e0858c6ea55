package domain

import (
	"fmt"
	"time"
)

// DocumentEntry records one uploaded source document. The raw file lives in
// blob storage under StorageKey and must remain retrievable for the lifetime
// of the entry; chunks are re-derived from it on demand rather than persisted.
type DocumentEntry struct {
	ID         string
	ProjectID  string
	FileName   string
	StorageKey string
	UploadedAt time.Time
}

// ValidateDocumentEntry validates a DocumentEntry instance
func ValidateDocumentEntry(d *DocumentEntry) error {
	if d == nil {
		return fmt.Errorf("document entry cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document entry ID is required")
	}

	if d.ProjectID == "" {
		return fmt.Errorf("document entry ProjectID is required")
	}

	if d.FileName == "" {
		return fmt.Errorf("document entry FileName is required")
	}

	if d.StorageKey == "" {
		return fmt.Errorf("document entry StorageKey is required")
	}

	return nil
}

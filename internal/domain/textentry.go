package domain

import (
	"fmt"
	"time"
)

// TextEntry is the atomic knowledge unit. One shape covers three variants:
// a supplied Q&A pair (question and answer set), a pending interview question
// (question set, answer empty) and an interview answer (the pending entry
// after its single answering update).
//
// Empty string means absent; repositories map "" to NULL.
type TextEntry struct {
	ID            string
	ProjectID     string
	DocumentID    string
	Question      string
	Answer        string
	SourceContext string
	IsInterview   bool
	CreatedAt     time.Time
}

// Pending reports whether the entry is an unanswered question. This is the
// named state the session state machine transitions on, not an incidental
// null-check: an entry leaves the pending state only through the atomic
// answer update.
func (e *TextEntry) Pending() bool {
	return e.Question != "" && e.Answer == ""
}

// ValidateTextEntry validates a TextEntry instance
func ValidateTextEntry(e *TextEntry) error {
	if e == nil {
		return fmt.Errorf("text entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("text entry ID is required")
	}

	if e.ProjectID == "" {
		return fmt.Errorf("text entry ProjectID is required")
	}

	if e.Question == "" && e.Answer == "" {
		return fmt.Errorf("text entry requires a question or an answer")
	}

	return nil
}

// VectorID returns the vector-index id correlated with this entry. The
// prefix encodes the knowledge-unit type so a relational row can always be
// mapped back to its vector counterpart.
func (e *TextEntry) VectorID() string {
	if e.IsInterview {
		return "interview_" + e.ID
	}
	return "qa_" + e.ID
}

// ChunkVectorID returns the vector-index id for chunk n of a document.
func ChunkVectorID(documentID string, n int) string {
	return fmt.Sprintf("chunk_%s_%d", documentID, n)
}

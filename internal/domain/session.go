package domain

import (
	"fmt"
	"time"
)

// SessionStatus represents the lifecycle state of an interview session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// QAExchange is one asked/answered pair in a session's ordered history.
type QAExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Session is one project-wide interactive interview thread.
//
// CurrentEntryID points at the pending TextEntry currently being asked; it is
// empty while the session works through the predefined question list, in
// which case QuestionIndex identifies the question.
type Session struct {
	ID             string
	ProjectID      string
	Status         SessionStatus
	CurrentEntryID string
	QuestionIndex  int
	History        []QAExchange
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the session still accepts answers.
func (s *Session) Active() bool {
	return s.Status == SessionStatusActive
}

// ValidateSession validates a Session instance
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	if s.ProjectID == "" {
		return fmt.Errorf("session ProjectID is required")
	}

	if !isValidSessionStatus(s.Status) {
		return fmt.Errorf("session Status is invalid: %s", s.Status)
	}

	if s.QuestionIndex < 0 {
		return fmt.Errorf("session QuestionIndex cannot be negative")
	}

	return nil
}

func isValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted:
		return true
	}
	return false
}

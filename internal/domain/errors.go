package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrUnsupportedFileType  = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrMissingAnswer        = NewDomainError(ErrCodeValidation, "answer text is required")
	ErrMissingQuery         = NewDomainError(ErrCodeValidation, "query text is required")
	ErrMisalignedBatch      = NewDomainError(ErrCodeValidation, "texts, metadatas and ids must have equal length")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrProjectNotFound  = NewDomainError(ErrCodeNotFound, "project not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrEntryNotFound    = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "interview session not found")
)

// Already exists errors
var (
	ErrProjectAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "project already exists")
)

// Conflict errors
var (
	ErrSessionConflict = NewDomainError(ErrCodeConflict, "session was modified by a concurrent request")
	ErrEntryAnswered   = NewDomainError(ErrCodeConflict, "knowledge entry already has an answer")
)

// Operation errors
var (
	ErrSessionCompleted = NewDomainError(ErrCodeInvalidOperation, "interview session is already completed")
)

// Upstream provider errors. Callers can retry these; validation errors they cannot.
var (
	ErrProviderUnavailable = NewDomainError(ErrCodeUnavailable, "language model provider unavailable")
	ErrEmbeddingFailed     = NewDomainError(ErrCodeUnavailable, "embedding provider unavailable")
)

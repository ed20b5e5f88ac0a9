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
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrInvalidDocumentState = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrEmptySource          = NewDomainError(ErrCodeValidation, "source contains no extractable text")
	ErrMissingScope         = NewDomainError(ErrCodeValidation, "scope requires a user")
	ErrZeroEmbedding        = NewDomainError(ErrCodeValidation, "embedding has zero norm")
)

// Not found errors
var (
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrNotebookNotFound = NewDomainError(ErrCodeNotFound, "notebook not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrUserNotFound     = NewDomainError(ErrCodeNotFound, "user not found")
	ErrAPIKeyNotFound   = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrNotebookAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "notebook already exists")
	ErrUserAlreadyExists     = NewDomainError(ErrCodeAlreadyExists, "user already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked  = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey  = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrScopeForbidden = NewDomainError(ErrCodeForbidden, "scope belongs to another user")
)

// Ingestion errors
var (
	ErrUnsupportedSource = NewDomainError(ErrCodeInvalidOperation, "unsupported source format")
	ErrImageRejected     = NewDomainError(ErrCodeInvalidOperation, "image not suitable for analysis")
)

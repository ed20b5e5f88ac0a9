package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an ingested source file. Its chunks may be created before the
// document row exists and linked afterwards.
type Document struct {
	ID         string
	UserID     string
	NotebookID string
	Filename   string
	SourceType SourceType
	Status     DocumentStatus
	StorageKey string // object storage key of the original bytes, if retained
	ChunkCount int
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.UserID == "" {
		return fmt.Errorf("document UserID is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}
	if !isValidDocumentStatus(d.Status) {
		return ErrInvalidDocumentState
	}
	switch d.SourceType {
	case SourceTypeText, SourceTypePDF, SourceTypeImage:
	default:
		return ErrInvalidSourceType
	}
	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}

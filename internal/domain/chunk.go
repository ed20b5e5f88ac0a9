package domain

import (
	"fmt"
	"time"
)

// EmbeddingDimensions is the fixed width of every stored vector. Vectors from
// providers with a different native width are padded or truncated before they
// are written.
const EmbeddingDimensions = 768

// SourceType identifies where a chunk's text came from.
type SourceType string

const (
	SourceTypeText  SourceType = "text"
	SourceTypePDF   SourceType = "pdf"
	SourceTypeImage SourceType = "image"
)

// Chunk is the unit of retrievable knowledge: a token-bounded segment of an
// ingested source together with its embedding and scope metadata. Chunks are
// immutable once written, except for the deferred DocumentID back-fill.
type Chunk struct {
	ID         string
	UserID     string
	NotebookID string
	DocumentID string // may be empty until back-filled
	Content    string
	Tokens     int
	Embedding  []float32
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Metadata keys used by ingestion.
const (
	MetaSourceType = "source_type"
	MetaPage       = "page"
	MetaAnalyzer   = "analyzer"
	MetaFilename   = "filename"
)

// Page returns the chunk's page metadata, or "" for unpaginated sources.
func (c *Chunk) Page() string {
	return c.Metadata[MetaPage]
}

// SourceType returns the chunk's source type metadata.
func (c *Chunk) SourceType() SourceType {
	return SourceType(c.Metadata[MetaSourceType])
}

// ValidateChunk validates a Chunk instance before it is stored.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("chunk UserID is required")
	}
	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}
	if c.Tokens < 0 {
		return fmt.Errorf("chunk Tokens cannot be negative")
	}
	if len(c.Embedding) != 0 && len(c.Embedding) != EmbeddingDimensions {
		return fmt.Errorf("chunk Embedding must have %d dimensions, got %d", EmbeddingDimensions, len(c.Embedding))
	}
	switch c.SourceType() {
	case SourceTypeText, SourceTypePDF, SourceTypeImage:
	default:
		return ErrInvalidSourceType
	}
	return nil
}

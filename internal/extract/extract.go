// Package extract defines the document-extraction boundary. Concrete PDF or
// DOCX extractors plug in behind Extractor; ingestion only depends on their
// output contract of per-page text plus raw embedded images.
package extract

import (
	"context"
	"strings"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/token"
)

// Page is one page of extracted content.
type Page struct {
	Number int // 1-based; 0 for unpaginated sources
	Text   string
	Images [][]byte // raw bytes of embedded figures, in page order
}

// Extractor turns raw source bytes into pages.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]Page, error)
}

// TextExtractor handles plain UTF-8 text sources: one unpaginated page, no
// images.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, data []byte) ([]Page, error) {
	text := string(data)
	if !token.Valid(text) {
		return nil, domain.ErrUnsupportedSource
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptySource
	}
	return []Page{{Number: 0, Text: text}}, nil
}

// Package chunker splits extracted source text into token-bounded segments.
package chunker

import (
	"strings"

	"github.com/cortexnotes/cortex/internal/token"
)

// DefaultMaxTokens bounds a chunk's token length unless configured otherwise.
const DefaultMaxTokens = 500

// Segment is one token-bounded piece of a source. Page is 0 for unpaginated
// sources and 1-based otherwise.
type Segment struct {
	Text   string
	Tokens int
	Page   int
}

// Page is one page of extracted text from a paginated source.
type Page struct {
	Number int
	Text   string
}

// Chunker accumulates sentence-like units into segments, cutting whenever the
// buffer reaches MaxTokens. The trailing partial buffer always becomes a final
// segment; an empty buffer never does.
type Chunker struct {
	MaxTokens int
}

func New(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{MaxTokens: maxTokens}
}

// Split chunks a flat, unpaginated text.
func (c *Chunker) Split(text string) []Segment {
	segments, buffer := c.fill(nil, "", text, 0)
	return c.flush(segments, buffer, 0)
}

// SplitPages chunks a paginated source. The sentence buffer carries across
// page boundaries; each cut segment records the page it closed on, and the
// trailing buffer closes on the last page.
func (c *Chunker) SplitPages(pages []Page) []Segment {
	var segments []Segment
	buffer := ""
	lastPage := 0
	for _, p := range pages {
		segments, buffer = c.fill(segments, buffer, p.Text, p.Number)
		if p.Number > lastPage {
			lastPage = p.Number
		}
	}
	return c.flush(segments, buffer, lastPage)
}

// fill feeds text's sentences into the buffer, cutting segments as the token
// bound is reached. Newlines are folded to spaces so sentence detection works
// across wrapped lines.
func (c *Chunker) fill(segments []Segment, buffer, text string, page int) ([]Segment, string) {
	flat := strings.ReplaceAll(text, "\n", " ")
	for _, sentence := range strings.Split(flat, ". ") {
		buffer += sentence + ". "
		if n := token.Count(buffer); n >= c.MaxTokens {
			segments = c.flush(segments, buffer, page)
			buffer = ""
		}
	}
	return segments, buffer
}

func (c *Chunker) flush(segments []Segment, buffer string, page int) []Segment {
	text := strings.TrimSpace(buffer)
	if text == "" || text == "." {
		return segments
	}
	return append(segments, Segment{
		Text:   text,
		Tokens: token.Count(text),
		Page:   page,
	})
}

package domain

// Scope is the tenant boundary every ingestion and retrieval operation is
// parameterized by. UserID is mandatory; NotebookID and DocumentID narrow the
// scope further. Retrieval must never return a chunk outside the caller's
// scope.
type Scope struct {
	UserID     string
	NotebookID string
	DocumentID string
}

// Validate checks that the scope carries at least a user.
func (s Scope) Validate() error {
	if s.UserID == "" {
		return ErrMissingScope
	}
	return nil
}

// Contains reports whether the chunk falls inside the scope.
func (s Scope) Contains(c *Chunk) bool {
	if c == nil || c.UserID != s.UserID {
		return false
	}
	if s.NotebookID != "" && c.NotebookID != s.NotebookID {
		return false
	}
	if s.DocumentID != "" && c.DocumentID != s.DocumentID {
		return false
	}
	return true
}

package domain

import (
	"fmt"
	"time"
)

// Notebook groups a user's documents and chunks. Deleting a notebook cascades
// to everything inside it.
type Notebook struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNotebook creates a new Notebook instance
func NewNotebook(id, userID, name string, createdAt time.Time) *Notebook {
	return &Notebook{
		ID:        id,
		UserID:    userID,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateNotebook validates a Notebook instance
func ValidateNotebook(n *Notebook) error {
	if n == nil {
		return fmt.Errorf("notebook cannot be nil")
	}
	if n.ID == "" {
		return fmt.Errorf("notebook ID is required")
	}
	if n.UserID == "" {
		return fmt.Errorf("notebook UserID is required")
	}
	if n.Name == "" {
		return fmt.Errorf("notebook Name is required")
	}
	return nil
}

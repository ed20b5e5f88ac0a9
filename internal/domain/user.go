package domain

import (
	"fmt"
	"time"
)

// User is the tenant that owns notebooks, documents, and chunks.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// NewUser creates a new User instance
func NewUser(id, email string, createdAt time.Time) *User {
	return &User{
		ID:        id,
		Email:     email,
		CreatedAt: createdAt,
	}
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.Email == "" {
		return fmt.Errorf("user Email is required")
	}
	return nil
}

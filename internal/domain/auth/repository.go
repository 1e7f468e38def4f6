package auth

import (
	"context"

	"printq/internal/core/id"
)

// Repository defines user storage operations.
type Repository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user data with optimistic locking.
	Update(ctx context.Context, user *User) error

	// Exists checks whether an email is taken.
	Exists(ctx context.Context, email string) (bool, error)
}

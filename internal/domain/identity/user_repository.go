package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// Repository errors
var (
	ErrUserNotFound = shared.NewNotFoundError("USER_NOT_FOUND", "User not found")
	ErrEmailTaken   = shared.NewConflictError("EMAIL_TAKEN", "Email is already registered")
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user. Duplicate emails return a conflict error.
	Create(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// ExistsByEmail checks if an email already exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// FindAll returns users matching the filter with the total count
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	shared.Filter
	Role *Role
}

// Package repository defines data access interfaces for Victoria Identity.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/prn-tf/victoria-identity/internal/domain"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) ([]*domain.User, error)

	// FindByRole returns all users holding the given role.
	FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// SettingsRepository defines the interface for the durable key/value
// settings store. This is the source of truth for setup flags across
// process restarts.
type SettingsRepository interface {
	// Get retrieves the value for a key.
	// Returns domain.ErrSettingNotFound if the key has no value.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value under a key, creating or overwriting it.
	Set(ctx context.Context, key, value string) error

	// All returns every stored setting.
	All(ctx context.Context) ([]domain.Setting, error)
}

// SessionRepository defines the interface for session data access.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByToken retrieves a session by its token.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// Delete removes a session by token.
	Delete(ctx context.Context, token string) error

	// DeleteByUserID removes all sessions belonging to a user.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired removes expired sessions, returning the count deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}

// ListOptions contains pagination options for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

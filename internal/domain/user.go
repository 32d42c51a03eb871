// Package domain contains the core business entities for Victoria Identity.
// These are pure Go structs with no storage or transport dependencies,
// representing the fundamental concepts of the user-management system.
package domain

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// Maximum lengths enforced by entity validation, matching the column limits
// in the users table.
const (
	MaxEmailLength = 254
	MaxNameLength  = 64
)

// User represents an identity in the system.
//
// A freshly provisioned instance holds a single shell user: no email, no
// name, no credential, but already carrying the global/owner role. The
// owner-claim flow fills in the shell exactly once.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `json:"id"`

	// Email is the unique, lowercase-normalized email address.
	// Empty for a shell user that has not been claimed yet.
	Email string `json:"email"`

	// FirstName and LastName are empty for shell users.
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized; plaintext passwords are never stored or logged.
	PasswordHash string `json:"-"`

	// Role is the user's role descriptor.
	Role Role `json:"role"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewShellUser creates an unclaimed placeholder user with the given role.
func NewShellUser(role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsShell reports whether the user is still an unclaimed placeholder.
func (u *User) IsShell() bool {
	return u.Email == "" && u.PasswordHash == ""
}

// Validate checks the entity against its schema constraints. It is the last
// gate before persistence: a user that fails validation must never be saved.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrEntityInvalid)
	}
	if u.Email != "" {
		if len(u.Email) > MaxEmailLength {
			return fmt.Errorf("%w: email exceeds %d characters", ErrEntityInvalid, MaxEmailLength)
		}
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return fmt.Errorf("%w: malformed email", ErrEntityInvalid)
		}
	}
	if len(u.FirstName) > MaxNameLength {
		return fmt.Errorf("%w: first name exceeds %d characters", ErrEntityInvalid, MaxNameLength)
	}
	if len(u.LastName) > MaxNameLength {
		return fmt.Errorf("%w: last name exceeds %d characters", ErrEntityInvalid, MaxNameLength)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrEntityInvalid, u.Role.String())
	}
	return nil
}

// PublicUser is the sanitized representation returned by the API.
// Credential material is stripped.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
}

// Sanitize returns the public view of the user.
func (u *User) Sanitize() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

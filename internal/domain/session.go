package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is an opaque, time-bounded credential bound to a user.
// The token is random and carries no claims; everything else lives server-side.
type Session struct {
	// Token is the opaque session identifier handed to the client.
	Token string `json:"-"`

	// UserID is the user this session authenticates.
	UserID uuid.UUID `json:"userId"`

	// CreatedAt is when the session was issued.
	CreatedAt time.Time `json:"createdAt"`

	// ExpiresAt is when the session stops being valid.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

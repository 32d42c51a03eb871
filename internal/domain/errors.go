package domain

import "errors"

// Domain errors. Services wrap these with context; handlers map them to
// HTTP status codes.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a uniqueness conflict on create/update.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound indicates the session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSettingNotFound indicates the settings key has no stored value.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrEntityInvalid indicates an entity failed schema validation and
	// must not be persisted.
	ErrEntityInvalid = errors.New("entity invalid")
)

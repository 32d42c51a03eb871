// Package service provides business logic services for Victoria Identity.
package service

import "errors"

// Common service errors.
var (
	// Owner-setup errors
	ErrOwnerAlreadySetUp = errors.New("instance owner already set up")
	ErrInvalidClaim      = errors.New("invalid ownership claim")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrMissingName       = errors.New("first and last names are mandatory")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOwnerExists        = errors.New("an owner account already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found or expired")

	// General errors
	ErrInternalError = errors.New("internal server error")
)

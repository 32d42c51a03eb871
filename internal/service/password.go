package service

import (
	"fmt"
	"unicode"
)

// Password policy bounds. Passwords above the maximum would be silently
// truncated by bcrypt, so the upper bound is enforced here.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

// ValidatePassword checks a plaintext password against the policy:
// 8-64 characters, at least one digit, at least one uppercase letter.
// The returned error names the violated rule.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidPassword, MaxPasswordLength)
	}

	var hasDigit, hasUpper bool
	for _, c := range password {
		switch {
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsUpper(c):
			hasUpper = true
		}
	}

	if !hasDigit {
		return fmt.Errorf("%w: must contain at least one number", ErrInvalidPassword)
	}
	if !hasUpper {
		return fmt.Errorf("%w: must contain at least one uppercase letter", ErrInvalidPassword)
	}

	return nil
}

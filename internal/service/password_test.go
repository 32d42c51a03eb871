package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
		wantRule string
	}{
		{
			name:     "valid password",
			password: "Sup3rSecret",
			wantErr:  false,
		},
		{
			name:     "minimum length boundary",
			password: "Abcdef1x",
			wantErr:  false,
		},
		{
			name:     "too short",
			password: "Abc123",
			wantErr:  true,
			wantRule: "at least 8 characters",
		},
		{
			name:     "too long",
			password: "A1" + strings.Repeat("a", 63),
			wantErr:  true,
			wantRule: "at most 64 characters",
		},
		{
			name:     "missing digit",
			password: "NoDigitsHere",
			wantErr:  true,
			wantRule: "at least one number",
		},
		{
			name:     "missing uppercase",
			password: "alllower123",
			wantErr:  true,
			wantRule: "at least one uppercase letter",
		},
		{
			name:     "empty",
			password: "",
			wantErr:  true,
			wantRule: "at least 8 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPassword)
			assert.Contains(t, err.Error(), tt.wantRule)
		})
	}
}

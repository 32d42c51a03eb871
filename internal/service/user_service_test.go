package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/repository/memory"
)

func TestProvisionOwnerShell(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	svc := NewUserService(users, zerolog.Nop())

	shell, err := svc.ProvisionOwnerShell(ctx)
	require.NoError(t, err)
	assert.True(t, shell.IsShell())
	assert.Equal(t, domain.GlobalOwner, shell.Role)

	// Provisioning again reports the existing owner instead of creating
	// a second one.
	existing, err := svc.ProvisionOwnerShell(ctx)
	assert.ErrorIs(t, err, ErrOwnerExists)
	assert.Equal(t, shell.ID, existing.ID)

	owners, err := users.FindByRole(ctx, domain.GlobalOwner)
	require.NoError(t, err)
	assert.Len(t, owners, 1)
}

func TestFindOwner(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	svc := NewUserService(users, zerolog.Nop())

	_, err := svc.FindOwner(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound)

	shell, err := svc.ProvisionOwnerShell(ctx)
	require.NoError(t, err)

	owner, err := svc.FindOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, shell.ID, owner.ID)
}

package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/lock"
	"github.com/prn-tf/victoria-identity/internal/pkg/crypto"
	"github.com/prn-tf/victoria-identity/internal/repository/memory"
	"github.com/prn-tf/victoria-identity/internal/settings"
)

// recordingUserRepo wraps the in-memory user repository and counts writes,
// so tests can assert that rejected claims touch nothing.
type recordingUserRepo struct {
	*memory.UserRepository
	updates int
}

func (r *recordingUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.updates++
	return r.UserRepository.Update(ctx, user)
}

type ownerFixture struct {
	service  *OwnerService
	users    *recordingUserRepo
	settings *memory.SettingsRepository
	runtime  *settings.Runtime
	shell    *domain.User
}

func newOwnerFixture(t *testing.T) *ownerFixture {
	t.Helper()
	ctx := context.Background()

	users := &recordingUserRepo{UserRepository: memory.NewUserRepository()}
	settingsRepo := memory.NewSettingsRepository()

	runtime, err := settings.Load(ctx, settingsRepo, zerolog.Nop())
	require.NoError(t, err)

	shell := domain.NewShellUser(domain.GlobalOwner)
	require.NoError(t, users.Create(ctx, shell))

	return &ownerFixture{
		service:  NewOwnerService(users, runtime, lock.NewMemoryLocker(), zerolog.Nop()),
		users:    users,
		settings: settingsRepo,
		runtime:  runtime,
		shell:    shell,
	}
}

func validClaim(userID uuid.UUID) ClaimInput {
	return ClaimInput{
		UserID:    userID,
		Email:     "owner@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "Sup3rSecret",
	}
}

func TestClaim_Success(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	owner, err := f.service.Claim(ctx, validClaim(f.shell.ID))
	require.NoError(t, err)

	assert.Equal(t, f.shell.ID, owner.ID)
	assert.Equal(t, "owner@example.com", owner.Email)
	assert.Equal(t, "Ada", owner.FirstName)
	assert.Equal(t, "Lovelace", owner.LastName)
	assert.Equal(t, domain.GlobalOwner, owner.Role)
	assert.True(t, crypto.CheckPassword("Sup3rSecret", owner.PasswordHash))

	// Flag flipped durably and in the cached copy.
	assert.True(t, f.runtime.IsOwnerSetUp())
	stored, err := f.settings.Get(ctx, domain.SettingOwnerSetUp)
	require.NoError(t, err)
	assert.Equal(t, "true", stored)

	// The stored identity matches the returned one.
	persisted, err := f.users.GetByID(ctx, f.shell.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", persisted.Email)
	assert.False(t, persisted.IsShell())
}

func TestClaim_NormalizesEmail(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	input := validClaim(f.shell.ID)
	input.Email = "  Owner@Example.COM "

	owner, err := f.service.Claim(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", owner.Email)
}

func TestClaim_RejectedWhenAlreadySetUp(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	_, err := f.service.Claim(ctx, validClaim(f.shell.ID))
	require.NoError(t, err)
	updatesAfterFirst := f.users.updates

	_, err = f.service.Claim(ctx, validClaim(f.shell.ID))
	assert.ErrorIs(t, err, ErrOwnerAlreadySetUp)
	assert.Equal(t, updatesAfterFirst, f.users.updates, "late claim must not write")
}

func TestClaim_InvalidPayloadWritesNothing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ClaimInput)
		wantErr error
	}{
		{
			name:    "missing email",
			mutate:  func(in *ClaimInput) { in.Email = "" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "malformed email",
			mutate:  func(in *ClaimInput) { in.Email = "not-an-email" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "weak password",
			mutate:  func(in *ClaimInput) { in.Password = "short" },
			wantErr: ErrInvalidPassword,
		},
		{
			name:    "missing first name",
			mutate:  func(in *ClaimInput) { in.FirstName = "" },
			wantErr: ErrMissingName,
		},
		{
			name:    "missing last name",
			mutate:  func(in *ClaimInput) { in.LastName = "" },
			wantErr: ErrMissingName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOwnerFixture(t)
			input := validClaim(f.shell.ID)
			tt.mutate(&input)

			_, err := f.service.Claim(ctx, input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.users.updates, "rejected claim must not write")
			assert.False(t, f.runtime.IsOwnerSetUp())

			persisted, err := f.users.GetByID(ctx, f.shell.ID)
			require.NoError(t, err)
			assert.True(t, persisted.IsShell(), "shell must remain untouched")
		})
	}
}

func TestClaim_UnknownUserRejected(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	_, err := f.service.Claim(ctx, validClaim(uuid.New()))
	assert.ErrorIs(t, err, ErrInvalidClaim)
	assert.False(t, f.runtime.IsOwnerSetUp())
}

func TestClaim_GlobalNonOwnerRejected(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	member := domain.NewShellUser(domain.GlobalMember)
	require.NoError(t, f.users.Create(ctx, member))

	_, err := f.service.Claim(ctx, validClaim(member.ID))
	assert.ErrorIs(t, err, ErrInvalidClaim)
	assert.Zero(t, f.users.updates)
}

func TestClaim_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	// Everything is wrong; the email error must win.
	_, err := f.service.Claim(ctx, ClaimInput{UserID: f.shell.ID})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	// Email fixed; the password error comes next, before the name check.
	_, err = f.service.Claim(ctx, ClaimInput{UserID: f.shell.ID, Email: "owner@example.com"})
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestClaim_AllowedAfterSkip(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	require.NoError(t, f.service.SkipSetup(ctx, f.shell.ID))
	require.True(t, f.runtime.IsSetupSkipped())

	// Skipping records a preference; it does not close the claim window.
	_, err := f.service.Claim(ctx, validClaim(f.shell.ID))
	require.NoError(t, err)

	assert.True(t, f.runtime.IsOwnerSetUp())
	assert.True(t, f.runtime.IsSetupSkipped())
}

func TestSkipSetup_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newOwnerFixture(t)

	require.NoError(t, f.service.SkipSetup(ctx, f.shell.ID))
	require.NoError(t, f.service.SkipSetup(ctx, f.shell.ID))

	stored, err := f.settings.Get(ctx, domain.SettingSkipSetup)
	require.NoError(t, err)
	assert.Equal(t, "true", stored)
}

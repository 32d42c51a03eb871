package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/prn-tf/victoria-identity/internal/cache/memory"
	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/lock"
	"github.com/prn-tf/victoria-identity/internal/pkg/crypto"
	"github.com/prn-tf/victoria-identity/internal/repository/memory"
)

func newSessionFixture(t *testing.T, ttl time.Duration) (*SessionService, *memory.SessionRepository, *memory.UserRepository) {
	t.Helper()
	sessions := memory.NewSessionRepository()
	users := memory.NewUserRepository()
	cache := memcache.NewCache()
	t.Cleanup(cache.Stop)
	svc := NewSessionService(sessions, users, cache, lock.NewMemoryLocker(), ttl, zerolog.Nop())
	return svc, sessions, users
}

func newClaimedUser(t *testing.T, users *memory.UserRepository, email, password string) *domain.User {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := domain.NewShellUser(domain.GlobalOwner)
	user.Email = email
	user.FirstName = "Ada"
	user.LastName = "Lovelace"
	user.PasswordHash = hash
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, _, users := newSessionFixture(t, time.Hour)
	user := newClaimedUser(t, users, "owner@example.com", "Sup3rSecret")

	session, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, user.ID, session.UserID)

	resolved, err := svc.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestValidate_UnknownToken(t *testing.T) {
	svc, _, _ := newSessionFixture(t, time.Hour)

	_, err := svc.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestValidate_ExpiredSessionDeleted(t *testing.T) {
	ctx := context.Background()
	svc, sessions, users := newSessionFixture(t, -time.Minute)
	user := newClaimedUser(t, users, "owner@example.com", "Sup3rSecret")

	session, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Expired sessions are removed on sight.
	_, err = sessions.GetByToken(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, users := newSessionFixture(t, time.Hour)
	newClaimedUser(t, users, "owner@example.com", "Sup3rSecret")

	t.Run("success", func(t *testing.T) {
		user, session, err := svc.Login(ctx, "owner@example.com", "Sup3rSecret")
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", user.Email)
		assert.NotEmpty(t, session.Token)
	})

	t.Run("email case-insensitive", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "Owner@Example.COM", "Sup3rSecret")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "owner@example.com", "WrongPass1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "Sup3rSecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLogin_ShellUserCannotLogIn(t *testing.T) {
	ctx := context.Background()
	svc, _, users := newSessionFixture(t, time.Hour)

	shell := domain.NewShellUser(domain.GlobalOwner)
	require.NoError(t, users.Create(ctx, shell))

	_, _, err := svc.Login(ctx, "", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, _, users := newSessionFixture(t, time.Hour)
	user := newClaimedUser(t, users, "owner@example.com", "Sup3rSecret")

	session, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))

	_, err = svc.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Logging out an already-deleted token is a no-op.
	assert.NoError(t, svc.Logout(ctx, session.Token))
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	svc, sessions, users := newSessionFixture(t, time.Hour)
	user := newClaimedUser(t, users, "owner@example.com", "Sup3rSecret")

	live, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	expired := &domain.Session{
		Token:     "expired-token",
		UserID:    user.ID,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, sessions.Create(ctx, expired))

	require.NoError(t, svc.PurgeExpired(ctx))

	_, err = sessions.GetByToken(ctx, expired.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = sessions.GetByToken(ctx, live.Token)
	assert.NoError(t, err)
}

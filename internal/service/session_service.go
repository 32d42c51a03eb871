package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/lock"
	"github.com/prn-tf/victoria-identity/internal/pkg/crypto"
	"github.com/prn-tf/victoria-identity/internal/repository"
)

// sessionPurgeLockTTL bounds how long a purge run may hold the purge lock.
const sessionPurgeLockTTL = 30 * time.Second

// sessionCacheTTL bounds how long a validated identity is served from cache
// before the session store is consulted again.
const sessionCacheTTL = time.Minute

// SessionService issues and validates opaque browser session tokens.
// Validated identities are kept in a short-TTL cache to spare the store a
// lookup per request.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	cache    repository.Cache
	locker   lock.Locker
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewSessionService creates a new SessionService. ttl is the lifetime of
// issued sessions.
func NewSessionService(sessions repository.SessionRepository, users repository.UserRepository, cache repository.Cache, locker lock.Locker, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		cache:    cache,
		locker:   locker,
		ttl:      ttl,
		logger:   logger.With().Str("service", "session").Logger(),
	}
}

func sessionCacheKey(token string) string {
	return "session:user:" + token
}

// Issue creates a new session for the given user and returns it with the
// raw token populated.
func (s *SessionService) Issue(ctx context.Context, user *domain.User) (*domain.Session, error) {
	token, err := crypto.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Str("user_id", user.ID.String()).Time("expires_at", session.ExpiresAt).Msg("session issued")
	return session, nil
}

// Login authenticates a user by email and password and issues a session.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Msg("login rejected: unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// Shell accounts have no password and cannot log in until claimed.
	if user.IsShell() || !crypto.CheckPassword(password, user.PasswordHash) {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("login rejected: bad credentials")
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return user, session, nil
}

// Validate resolves a session token to its user. Expired sessions are
// deleted on sight and reported as ErrSessionNotFound.
func (s *SessionService) Validate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	if cached, err := s.cache.Get(ctx, sessionCacheKey(token)); err == nil {
		var user domain.User
		if err := json.Unmarshal(cached, &user); err == nil {
			return &user, nil
		}
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if session.Expired() {
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete expired session")
		}
		return nil, ErrSessionNotFound
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	cacheTTL := sessionCacheTTL
	if remaining := time.Until(session.ExpiresAt); remaining < cacheTTL {
		cacheTTL = remaining
	}
	if encoded, err := json.Marshal(user); err == nil {
		if err := s.cache.Set(ctx, sessionCacheKey(token), encoded, cacheTTL); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache session identity")
		}
	}

	return user, nil
}

// Logout deletes the session for the given token. Unknown tokens are a
// no-op success.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.cache.Delete(ctx, sessionCacheKey(token)); err != nil {
		s.logger.Debug().Err(err).Msg("failed to evict cached session identity")
	}
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}

// PurgeExpired deletes expired sessions. The purge lock keeps multiple
// replicas from running the sweep at once; losing the lock is a no-op.
func (s *SessionService) PurgeExpired(ctx context.Context) error {
	acquired, err := s.locker.Acquire(ctx, lock.Keys.SessionPurge(), sessionPurgeLockTTL)
	if err != nil {
		return fmt.Errorf("%w: failed to acquire purge lock: %v", ErrInternalError, err)
	}
	if !acquired {
		return nil
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lock.Keys.SessionPurge()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release purge lock")
		}
	}()

	purged, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if purged > 0 {
		s.logger.Info().Int64("purged", purged).Msg("expired sessions purged")
	}
	return nil
}

// RunPurgeLoop runs PurgeExpired on the given interval until ctx is done.
func (s *SessionService) RunPurgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PurgeExpired(ctx); err != nil {
				s.logger.Error().Err(err).Msg("session purge failed")
			}
		}
	}
}

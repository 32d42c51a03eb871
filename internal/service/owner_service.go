package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/lock"
	"github.com/prn-tf/victoria-identity/internal/pkg/crypto"
	"github.com/prn-tf/victoria-identity/internal/repository"
	"github.com/prn-tf/victoria-identity/internal/settings"
)

// ownerClaimLockTTL bounds how long a claim commit may hold the setup lock.
const ownerClaimLockTTL = 10 * time.Second

// OwnerService handles the one-time instance owner setup: claiming the
// placeholder owner account or recording that setup was skipped.
type OwnerService struct {
	users   repository.UserRepository
	runtime *settings.Runtime
	locker  lock.Locker
	logger  zerolog.Logger
}

// NewOwnerService creates a new OwnerService.
func NewOwnerService(users repository.UserRepository, runtime *settings.Runtime, locker lock.Locker, logger zerolog.Logger) *OwnerService {
	return &OwnerService{
		users:   users,
		runtime: runtime,
		locker:  locker,
		logger:  logger.With().Str("service", "owner").Logger(),
	}
}

// ClaimInput contains the data needed to claim instance ownership.
// It is transient: processed once and discarded, never persisted.
type ClaimInput struct {
	// UserID identifies the authenticated requester, whose shell account
	// is being claimed.
	UserID uuid.UUID

	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Claim converts the unclaimed placeholder account into the configured
// instance owner. The transition is one-way: once the owner is set up,
// further claims are rejected.
//
// The sequence is guard, validate, resolve, commit. The commit merges the
// claim into the identity in memory, validates the result, persists it and
// only then flips the owner-set-up flag, durable store first. No partial
// state is written on any validation failure.
func (s *OwnerService) Claim(ctx context.Context, input ClaimInput) (*domain.User, error) {
	if s.runtime.IsOwnerSetUp() {
		s.logger.Debug().
			Str("user_id", input.UserID.String()).
			Msg("ownership claim rejected: instance owner already exists")
		return nil, ErrOwnerAlreadySetUp
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		s.logger.Debug().Str("user_id", input.UserID.String()).Msg("ownership claim rejected: missing email")
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Debug().Str("user_id", input.UserID.String()).Msg("ownership claim rejected: invalid email")
		return nil, ErrInvalidEmail
	}

	if err := ValidatePassword(input.Password); err != nil {
		s.logger.Debug().Str("user_id", input.UserID.String()).Msg("ownership claim rejected: password policy violation")
		return nil, err
	}

	if input.FirstName == "" || input.LastName == "" {
		s.logger.Debug().Str("user_id", input.UserID.String()).Msg("ownership claim rejected: missing first or last name")
		return nil, ErrMissingName
	}

	// Serialize the commit so two concurrent claims cannot both pass the
	// guard. The loser observes the flag flipped and is rejected like any
	// late claim.
	acquired, err := s.locker.Acquire(ctx, lock.Keys.OwnerSetup(), ownerClaimLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to acquire setup lock: %v", ErrInternalError, err)
	}
	if !acquired {
		s.logger.Debug().Str("user_id", input.UserID.String()).Msg("ownership claim rejected: concurrent claim in progress")
		return nil, ErrOwnerAlreadySetUp
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lock.Keys.OwnerSetup()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release setup lock")
		}
	}()

	if s.runtime.IsOwnerSetUp() {
		s.logger.Debug().Str("user_id", input.UserID.String()).Msg("ownership claim rejected: owner claimed concurrently")
		return nil, ErrOwnerAlreadySetUp
	}

	owner, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().
				Str("user_id", input.UserID.String()).
				Msg("ownership claim rejected: user shell does not exist")
			return nil, ErrInvalidClaim
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// A global-scoped account that is not the owner shell must never be
	// promoted to owner.
	if owner.Role.Scope == domain.ScopeGlobal && !owner.Role.IsOwner() {
		s.logger.Debug().
			Str("user_id", input.UserID.String()).
			Str("role", owner.Role.String()).
			Msg("ownership claim rejected: user shell has wrong role")
		return nil, ErrInvalidClaim
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	owner.Email = email
	owner.FirstName = input.FirstName
	owner.LastName = input.LastName
	owner.PasswordHash = passwordHash
	owner.Role = domain.GlobalOwner

	if err := owner.Validate(); err != nil {
		s.logger.Debug().
			Str("user_id", input.UserID.String()).
			Err(err).
			Msg("ownership claim rejected: entity validation failed")
		return nil, err
	}

	if err := s.users.Update(ctx, owner); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: email already in use", ErrInvalidClaim)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", owner.ID.String()).Msg("instance owner set up successfully")

	if err := s.runtime.SetOwnerSetUp(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Str("user_id", owner.ID.String()).Msg("owner set-up flag updated")

	return owner, nil
}

// SkipSetup durably records that owner setup was explicitly bypassed.
// Idempotent: skipping an already-skipped instance is a no-op success.
func (s *OwnerService) SkipSetup(ctx context.Context, userID uuid.UUID) error {
	if err := s.runtime.SetSetupSkipped(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Debug().Str("user_id", userID.String()).Msg("owner setup skipped")
	return nil
}

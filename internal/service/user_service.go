package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/repository"
)

// UserService handles user account management.
type UserService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.With().Str("service", "user").Logger(),
	}
}

// ProvisionOwnerShell creates the unclaimed owner placeholder account if no
// global owner exists yet. Returns the existing owner when one is already
// present, wrapped in ErrOwnerExists.
func (s *UserService) ProvisionOwnerShell(ctx context.Context) (*domain.User, error) {
	existing, err := s.users.FindByRole(ctx, domain.GlobalOwner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if len(existing) > 0 {
		return existing[0], ErrOwnerExists
	}

	shell := domain.NewShellUser(domain.GlobalOwner)
	if err := s.users.Create(ctx, shell); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", shell.ID.String()).Msg("owner shell account provisioned")
	return shell, nil
}

// FindOwner returns the global owner account, claimed or not.
func (s *UserService) FindOwner(ctx context.Context) (*domain.User, error) {
	owners, err := s.users.FindByRole(ctx, domain.GlobalOwner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if len(owners) == 0 {
		return nil, ErrUserNotFound
	}
	return owners[0], nil
}

// GetByID returns a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// List returns users with pagination.
func (s *UserService) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, error) {
	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

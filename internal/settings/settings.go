// Package settings manages system-wide configuration flags. Flags live in
// two places: the durable settings store (source of truth across restarts)
// and a process-local cached copy used for fast in-memory checks.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/repository"
)

// Runtime holds the process-local cached copy of the durable settings.
//
// Writes always go to the durable store first and only then to the cache.
// A crash between the two writes leaves the cache behind the store, which
// is safe: the cache is a hint, re-seeded from the store on restart. The
// reverse ordering could leave a durable record claiming less than the
// cache, which is not recoverable by a restart.
type Runtime struct {
	repo   repository.SettingsRepository
	logger zerolog.Logger

	mu    sync.RWMutex
	flags map[string]bool
}

// Load seeds a Runtime from the durable settings store.
func Load(ctx context.Context, repo repository.SettingsRepository, logger zerolog.Logger) (*Runtime, error) {
	r := &Runtime{
		repo:   repo,
		logger: logger.With().Str("component", "settings").Logger(),
		flags:  make(map[string]bool),
	}

	stored, err := repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	for _, s := range stored {
		value, err := strconv.ParseBool(s.Value)
		if err != nil {
			// Non-boolean settings are not cached here.
			continue
		}
		r.flags[s.Key] = value
	}

	r.logger.Info().
		Bool("owner_set_up", r.flags[domain.SettingOwnerSetUp]).
		Bool("setup_skipped", r.flags[domain.SettingSkipSetup]).
		Msg("settings loaded")

	return r, nil
}

// IsOwnerSetUp reports whether the instance owner has been claimed,
// according to the cached copy.
func (r *Runtime) IsOwnerSetUp() bool {
	return r.getBool(domain.SettingOwnerSetUp)
}

// IsSetupSkipped reports whether owner setup was explicitly bypassed,
// according to the cached copy.
func (r *Runtime) IsSetupSkipped() bool {
	return r.getBool(domain.SettingSkipSetup)
}

// SetOwnerSetUp durably records that the owner has been claimed, then
// updates the cached copy.
func (r *Runtime) SetOwnerSetUp(ctx context.Context) error {
	return r.setBool(ctx, domain.SettingOwnerSetUp, true)
}

// SetSetupSkipped durably records that setup was bypassed, then updates
// the cached copy. Safe to call repeatedly.
func (r *Runtime) SetSetupSkipped(ctx context.Context) error {
	return r.setBool(ctx, domain.SettingSkipSetup, true)
}

func (r *Runtime) getBool(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[key]
}

// setBool writes the durable store first, then the cache.
func (r *Runtime) setBool(ctx context.Context, key string, value bool) error {
	if err := r.repo.Set(ctx, key, strconv.FormatBool(value)); err != nil {
		return fmt.Errorf("failed to persist setting %s: %w", key, err)
	}

	r.mu.Lock()
	r.flags[key] = value
	r.mu.Unlock()

	r.logger.Debug().Str("key", key).Bool("value", value).Msg("setting updated")
	return nil
}

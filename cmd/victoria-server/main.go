// Command victoria-server runs the Victoria Identity API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	memcache "github.com/prn-tf/victoria-identity/internal/cache/memory"
	"github.com/prn-tf/victoria-identity/internal/cache/redis"
	"github.com/prn-tf/victoria-identity/internal/config"
	"github.com/prn-tf/victoria-identity/internal/handler"
	"github.com/prn-tf/victoria-identity/internal/lock"
	"github.com/prn-tf/victoria-identity/internal/metrics"
	"github.com/prn-tf/victoria-identity/internal/repository"
	"github.com/prn-tf/victoria-identity/internal/repository/postgres"
	"github.com/prn-tf/victoria-identity/internal/repository/sqlite"
	"github.com/prn-tf/victoria-identity/internal/service"
	"github.com/prn-tf/victoria-identity/internal/settings"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Str("addr", cfg.Server.Addr()).Str("driver", cfg.Database.Driver).Msg("starting victoria-identity server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	stores, closeDB, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	cache, locker, closeCache, err := newCacheAndLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	runtime, err := settings.Load(ctx, stores.settings, logger)
	if err != nil {
		return err
	}

	userService := service.NewUserService(stores.users, logger)
	sessionService := service.NewSessionService(stores.sessions, stores.users, cache, locker, cfg.Session.TTL, logger)
	ownerService := service.NewOwnerService(stores.users, runtime, locker, logger)

	// A fresh instance needs its placeholder owner before anyone can claim it.
	if !runtime.IsOwnerSetUp() {
		if _, err := userService.ProvisionOwnerShell(ctx); err != nil && !errors.Is(err, service.ErrOwnerExists) {
			return fmt.Errorf("failed to provision owner shell: %w", err)
		}
	}

	m := metrics.New()
	auth := handler.NewAuthenticator(sessionService, userService, runtime, cfg.Session.CookieName, logger)
	router := handler.NewRouter(handler.RouterConfig{
		Owner:   handler.NewOwnerHandler(ownerService, sessionService, cfg.Session, m, logger),
		Auth:    handler.NewAuthHandler(sessionService, cfg.Session, m, logger),
		Session: auth,
		Metrics: m,
		DB:      stores.db,
		Logger:  logger,
	})

	go sessionService.RunPurgeLoop(ctx, cfg.Session.PurgeInterval)

	apiServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}

// storeSet bundles the repositories plus the health probe for the router.
type storeSet struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	sessions repository.SessionRepository
	db       handler.Pinger
}

// openStores connects to the configured backend, applies migrations and
// returns the repository set.
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storeSet, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &storeSet{
			users:    postgres.NewUserRepository(db),
			settings: postgres.NewSettingsRepository(db),
			sessions: postgres.NewSessionRepository(db),
			db:       db,
		}, func() { db.Close() }, nil

	default:
		db, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &storeSet{
			users:    sqlite.NewUserRepository(db),
			settings: sqlite.NewSettingsRepository(db),
			sessions: sqlite.NewSessionRepository(db),
			db:       db,
		}, func() { db.Close() }, nil
	}
}

func sqliteConfig(cfg config.DatabaseConfig) sqlite.Config {
	sc := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sc.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sc.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.SynchronousMode != "" {
		sc.SynchronousMode = cfg.SynchronousMode
	}
	return sc
}

// newCacheAndLocker returns redis-backed cache and locker when redis is
// enabled, otherwise the in-process equivalents.
func newCacheAndLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Cache, lock.Locker, func(), error) {
	if !cfg.Redis.Enabled {
		cache := memcache.NewCache()
		return cache, lock.NewMemoryLocker(), func() { cache.Stop() }, nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, lock.NewRedisLocker(client), func() { client.Close() }, nil
}

// newLogger builds the root logger from configuration.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(out)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

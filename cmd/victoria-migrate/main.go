// Command victoria-migrate applies schema migrations for Victoria Identity.
//
// Usage:
//
//	victoria-migrate [-config path] up|status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/config"
	"github.com/prn-tf/victoria-identity/internal/repository/postgres"
	"github.com/prn-tf/victoria-identity/internal/repository/sqlite"
)

// migrator is the per-backend surface this command needs.
type migrator interface {
	Migrate(ctx context.Context) error
	MigrationVersion(ctx context.Context) (int, error)
	Close() error
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 || (args[0] != "up" && args[0] != "status") {
		fmt.Fprintln(os.Stderr, "usage: victoria-migrate [-config path] up|status")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	db, err := open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch args[0] {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
		version, err := db.MigrationVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read version: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("migrated to version %d\n", version)

	case "status":
		version, err := db.MigrationVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read version: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("driver: %s\nversion: %d\n", cfg.Database.Driver, version)
	}
}

func open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (migrator, error) {
	if cfg.Database.Driver == "postgres" {
		return postgres.NewDB(ctx, cfg.Database, logger)
	}
	return sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
}

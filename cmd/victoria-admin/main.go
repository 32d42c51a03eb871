// Command victoria-admin is the operational CLI for Victoria Identity.
//
// Usage:
//
//	victoria-admin [-config path] <command> [subcommand]
//
// Commands:
//
//	setup provision   create the placeholder owner account
//	setup status      show owner setup state
//	setup reset       revert the owner to an unclaimed placeholder
//	user list         list user accounts
//	version           print the version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/prn-tf/victoria-identity/internal/config"
	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/repository"
	"github.com/prn-tf/victoria-identity/internal/repository/postgres"
	"github.com/prn-tf/victoria-identity/internal/repository/sqlite"
	"github.com/prn-tf/victoria-identity/internal/service"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "version" {
		fmt.Println("victoria-admin", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := zerolog.Nop()

	stores, closeDB, err := openStores(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer closeDB()

	switch {
	case args[0] == "setup" && len(args) > 1 && args[1] == "provision":
		err = setupProvision(ctx, stores)
	case args[0] == "setup" && len(args) > 1 && args[1] == "status":
		err = setupStatus(ctx, stores)
	case args[0] == "setup" && len(args) > 1 && args[1] == "reset":
		err = setupReset(ctx, stores)
	case args[0] == "user" && len(args) > 1 && args[1] == "list":
		err = userList(ctx, stores)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: victoria-admin [-config path] <command>")
	fmt.Fprintln(os.Stderr, "commands: setup provision | setup status | setup reset | user list | version")
}

func setupProvision(ctx context.Context, stores *storeSet) error {
	users := service.NewUserService(stores.users, zerolog.Nop())

	shell, err := users.ProvisionOwnerShell(ctx)
	if errors.Is(err, service.ErrOwnerExists) {
		fmt.Printf("owner account already exists: %s\n", shell.ID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("owner shell provisioned: %s\n", shell.ID)
	return nil
}

func setupStatus(ctx context.Context, stores *storeSet) error {
	ownerSetUp := settingBool(ctx, stores.settings, domain.SettingOwnerSetUp)
	setupSkipped := settingBool(ctx, stores.settings, domain.SettingSkipSetup)

	fmt.Printf("owner set up:   %t\n", ownerSetUp)
	fmt.Printf("setup skipped:  %t\n", setupSkipped)

	owners, err := stores.users.FindByRole(ctx, domain.GlobalOwner)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		fmt.Println("owner account:  not provisioned")
		return nil
	}

	owner := owners[0]
	if owner.IsShell() {
		fmt.Printf("owner account:  %s (unclaimed)\n", owner.ID)
	} else {
		fmt.Printf("owner account:  %s (%s)\n", owner.ID, owner.Email)
	}
	return nil
}

// setupReset reverts the owner to an unclaimed placeholder: credentials and
// profile wiped, sessions revoked, setup flags cleared.
func setupReset(ctx context.Context, stores *storeSet) error {
	owners, err := stores.users.FindByRole(ctx, domain.GlobalOwner)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return fmt.Errorf("no owner account to reset")
	}

	owner := owners[0]
	owner.Email = ""
	owner.FirstName = ""
	owner.LastName = ""
	owner.PasswordHash = ""

	if err := stores.users.Update(ctx, owner); err != nil {
		return err
	}
	if err := stores.sessions.DeleteByUserID(ctx, owner.ID); err != nil {
		return err
	}
	if err := stores.settings.Set(ctx, domain.SettingOwnerSetUp, "false"); err != nil {
		return err
	}
	if err := stores.settings.Set(ctx, domain.SettingSkipSetup, "false"); err != nil {
		return err
	}

	fmt.Printf("owner account reset: %s\n", owner.ID)
	return nil
}

func userList(ctx context.Context, stores *storeSet) error {
	users, err := stores.users.List(ctx, repository.ListOptions{Limit: 100})
	if err != nil {
		return err
	}

	for _, u := range users {
		email := u.Email
		if email == "" {
			email = "(unclaimed)"
		}
		fmt.Printf("%s  %-12s  %s\n", u.ID, u.Role, email)
	}
	fmt.Printf("%d user(s)\n", len(users))
	return nil
}

func settingBool(ctx context.Context, settings repository.SettingsRepository, key string) bool {
	raw, err := settings.Get(ctx, key)
	if err != nil {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

type storeSet struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	sessions repository.SessionRepository
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storeSet, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return &storeSet{
			users:    postgres.NewUserRepository(db),
			settings: postgres.NewSettingsRepository(db),
			sessions: postgres.NewSessionRepository(db),
		}, func() { db.Close() }, nil

	default:
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, nil, err
		}
		return &storeSet{
			users:    sqlite.NewUserRepository(db),
			settings: sqlite.NewSettingsRepository(db),
			sessions: sqlite.NewSessionRepository(db),
		}, func() { db.Close() }, nil
	}
}

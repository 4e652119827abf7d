package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"forum-auth/internal/config"
	"forum-auth/internal/db"
)

type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

var newMigrator = func(databaseURL string) (migrator, error) {
	return db.NewMigrator(databaseURL)
}

// NewMigrateCmd crea el subcomando migrate.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Run PostgreSQL schema migrations",
		Long:      `Apply (up), roll back (down) or inspect (version) the embedded users schema.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := "up"
	if len(args) == 1 {
		direction = args[0]
	}

	cfg, err := config.LoadMigrateConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	m, err := newMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			cmd.PrintErrln("close migrator:", err)
		}
	}()

	switch direction {
	case "down":
		cmd.Println("Rolling back migrations...")
		if err := m.Down(); err != nil {
			return err
		}
	case "version":
	default:
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

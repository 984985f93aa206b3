package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/db"
	"github.com/unclebandit/clippilot-backend/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the embedded database migrations",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrate.Migrate) error {
					return ignoreNoChange(m.Up())
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations, one step by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				return withMigrator(func(m *migrate.Migrate) error {
					return ignoreNoChange(m.Steps(-steps))
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrate.Migrate) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
						return nil
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return root
}

func withMigrator(fn func(m *migrate.Migrate) error) error {
	conf, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(conf.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := db.Open(conf.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	m, err := db.NewMigrator(database.DB)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		logger.Error("migration failed", zap.Error(err))
		return err
	}
	logger.Info("migration finished")
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

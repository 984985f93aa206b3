// cmd/seeder/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/db"
	"github.com/unclebandit/clippilot-backend/internal/logging"
)

var seedFiles = []string{
	"users.sql",
	"teams.sql",
	"campaigns.sql",
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:          "seeder",
		Short:        "Migrate the database and load the seed data",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "seed", "directory holding the seed SQL files")
	return cmd
}

func seed(dir string) error {
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
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(database.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, name := range seedFiles {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed file %s: %w", path, err)
		}
		if _, err := database.Exec(string(content)); err != nil {
			return fmt.Errorf("execute seed file %s: %w", path, err)
		}
		logger.Info("seeded", zap.String("file", path))
	}
	logger.Info("database seeding completed")
	return nil
}

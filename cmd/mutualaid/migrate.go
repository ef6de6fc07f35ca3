package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/mutualaid/internal/database"
	"github.com/dukerupert/mutualaid/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel)

			db, err := database.OpenNoMigrate(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("migrations applied", "db", cfg.DBPath)
			return nil
		},
	}
}

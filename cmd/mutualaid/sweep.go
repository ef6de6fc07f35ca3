package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/mutualaid/internal/database"
	"github.com/dukerupert/mutualaid/internal/logging"
	"github.com/dukerupert/mutualaid/internal/scheduler"
	"github.com/dukerupert/mutualaid/internal/server"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the sunset and activation sweeps once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel)

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			srv := server.New(db, serverOptions(cfg), logger)
			sunset, activated, err := scheduler.RunOnce(cmd.Context(), srv.Design())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sunset: %d, activated: %d\n", len(sunset), activated)
			return nil
		},
	}
}

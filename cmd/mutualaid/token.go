package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/mutualaid/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		userID      string
		communityID string
		ttl         time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an identity token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || communityID == "" {
				return errors.New("--user and --community are required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireIdentity(); err != nil {
				return err
			}
			tok, err := middleware.IssueToken([]byte(cfg.IdentitySecret), userID, communityID, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&communityID, "community", "", "community id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

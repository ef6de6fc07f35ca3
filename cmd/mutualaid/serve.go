package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/mutualaid/internal/config"
	"github.com/dukerupert/mutualaid/internal/database"
	"github.com/dukerupert/mutualaid/internal/governance"
	"github.com/dukerupert/mutualaid/internal/logging"
	"github.com/dukerupert/mutualaid/internal/scheduler"
	"github.com/dukerupert/mutualaid/internal/server"
)

const rateLimitCleanupInterval = 5 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the lifecycle scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireIdentity(); err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serverOptions(cfg config.Config) server.Options {
	return server.Options{
		IdentitySecret: []byte(cfg.IdentitySecret),
		Governance:     governance.Config{BaseURL: cfg.GovernanceURL, Token: cfg.GovernanceToken},
		ResolverTTL:    cfg.ResolverTTL,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

func serve(cfg config.Config) error {
	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.GovernanceURL == "" {
		logger.Warn("governance not configured, submissions and activations will fail")
	}

	srv := server.New(db, serverOptions(cfg), logger)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go srv.Dispatcher().Run(bgCtx)

	sched, err := scheduler.New(logger.With("component", "scheduler"))
	if err != nil {
		return err
	}
	if err := sched.AddSweeps(srv.Design(), scheduler.Config{
		SunsetInterval:     cfg.SunsetInterval,
		ActivationInterval: cfg.ActivationInterval,
	}); err != nil {
		return err
	}
	if err := sched.Every("rate-limit-cleanup", rateLimitCleanupInterval, func(context.Context) error {
		if n := srv.RateLimiter().Cleanup(); n > 0 {
			logger.Debug("rate limit windows cleared", "count", n)
		}
		return nil
	}); err != nil {
		return err
	}
	sched.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := sched.Stop(); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	stopBackground()
	srv.Dispatcher().Wait()
	return nil
}

// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port               string        `env:"MUTUALAID_PORT" envDefault:"8080"`
	DBPath             string        `env:"MUTUALAID_DB_PATH" envDefault:"mutualaid.db"`
	LogLevel           string        `env:"MUTUALAID_LOG_LEVEL" envDefault:"info"`
	IdentitySecret     string        `env:"MUTUALAID_IDENTITY_SECRET"`
	GovernanceURL      string        `env:"MUTUALAID_GOVERNANCE_URL"`
	GovernanceToken    string        `env:"MUTUALAID_GOVERNANCE_TOKEN"`
	ResolverTTL        time.Duration `env:"MUTUALAID_RESOLVER_TTL" envDefault:"5m"`
	SunsetInterval     time.Duration `env:"MUTUALAID_SUNSET_INTERVAL" envDefault:"15m"`
	ActivationInterval time.Duration `env:"MUTUALAID_ACTIVATION_INTERVAL" envDefault:"1m"`
	AllowedOrigins     []string      `env:"MUTUALAID_ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RequireIdentity reports an error when no signing secret is configured.
func (c Config) RequireIdentity() error {
	if c.IdentitySecret == "" {
		return errors.New("MUTUALAID_IDENTITY_SECRET is required")
	}
	return nil
}

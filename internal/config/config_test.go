package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "mutualaid.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "mutualaid.db")
	}
	if cfg.ResolverTTL != 5*time.Minute {
		t.Errorf("ResolverTTL = %v, want %v", cfg.ResolverTTL, 5*time.Minute)
	}
	if cfg.SunsetInterval != 15*time.Minute {
		t.Errorf("SunsetInterval = %v, want %v", cfg.SunsetInterval, 15*time.Minute)
	}
	if cfg.ActivationInterval != time.Minute {
		t.Errorf("ActivationInterval = %v, want %v", cfg.ActivationInterval, time.Minute)
	}
	if err := cfg.RequireIdentity(); err == nil {
		t.Error("RequireIdentity() = nil, want error without a secret")
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("MUTUALAID_PORT", "9090")
	t.Setenv("MUTUALAID_IDENTITY_SECRET", "s3cret")
	t.Setenv("MUTUALAID_RESOLVER_TTL", "30s")
	t.Setenv("MUTUALAID_ALLOWED_ORIGINS", "example.org,*.example.org")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.ResolverTTL != 30*time.Second {
		t.Errorf("ResolverTTL = %v, want %v", cfg.ResolverTTL, 30*time.Second)
	}
	want := []string{"example.org", "*.example.org"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if err := cfg.RequireIdentity(); err != nil {
		t.Errorf("RequireIdentity() = %v, want nil", err)
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Setenv("MUTUALAID_SUNSET_INTERVAL", "soon")
	if _, err := Parse(); err == nil {
		t.Error("Parse() = nil error, want error for bad duration")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MUTUALAID_DB_PATH=from-file.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("MUTUALAID_DB_PATH") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from-file.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "from-file.db")
	}
}

func TestLoadWithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(); err != nil {
		t.Errorf("Load() = %v, want nil without a .env file", err)
	}
}

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/mutualaid/internal/middleware"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MUTUALAID_IDENTITY_SECRET", "cli-secret")

	out, err := run(t, "token", "--user", "u1", "--community", "c1", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	ac, err := middleware.ParseToken([]byte("cli-secret"), strings.TrimSpace(out), time.Now)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if ac.UserID != "u1" || ac.CommunityID != "c1" {
		t.Errorf("identity = %+v, want u1/c1", ac)
	}
}

func TestTokenCommandRequiresFlags(t *testing.T) {
	if _, err := run(t, "token", "--user", "u1"); err == nil {
		t.Error("token without --community succeeded, want error")
	}
}

func TestMigrateAndSweep(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MUTUALAID_DB_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("MUTUALAID_LOG_LEVEL", "error")

	if _, err := run(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err := run(t, "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if want := "sunset: 0, activated: 0"; !strings.Contains(out, want) {
		t.Errorf("sweep output = %q, want %q", out, want)
	}
}

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/api"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.db")
	t.Setenv("INTERNFINDER_ENV", "development")
	t.Setenv("INTERNFINDER_DATABASE_PATH", path)
	t.Setenv("INTERNFINDER_JWT_SECRET", "cli-test-secret")
	seedFile, tokenActorID, tokenRole, tokenTTL = "", 0, "", 0
	return dir
}

func TestCLI_MigrateSeedBackupRestore(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v (%s)", err, out)
	}
	if !strings.Contains(out, "migrations") {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = run(t, "seed")
	if err != nil {
		t.Fatalf("seed: %v (%s)", err, out)
	}
	if !strings.Contains(out, "seeded 4 actors, 3 jobs, 2 employments") {
		t.Fatalf("unexpected seed output %q", out)
	}

	snap := filepath.Join(dir, "snap")
	out, err = run(t, "backup", snap)
	if err != nil {
		t.Fatalf("backup: %v (%s)", err, out)
	}
	if !strings.Contains(out, snap+".zst") {
		t.Fatalf("expected .zst suffix in %q", out)
	}

	out, err = run(t, "restore", snap+".zst")
	if err != nil {
		t.Fatalf("restore: %v (%s)", err, out)
	}

	// the restored database still carries the fixture
	out, err = run(t, "seed")
	if err != nil {
		t.Fatalf("seed after restore: %v (%s)", err, out)
	}
}

func TestCLI_Token(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "--actor-id", "101", "--role", "intern", "--ttl", "5m")
	if err != nil {
		t.Fatalf("token: %v (%s)", err, out)
	}
	actor, err := api.ParseToken("cli-test-secret", strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if actor.ID != 101 || actor.Role != models.RoleIntern {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := run(t, "token", "--actor-id", "1", "--role", "admin"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestCLI_ModerateMissingReview(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := run(t, "review", "moderate", "42", "approved"); err == nil {
		t.Fatalf("expected error for missing review")
	}
	if _, err := run(t, "review", "moderate", "abc", "approved"); err == nil {
		t.Fatalf("expected error for bad id")
	}
}

func TestCLI_RejectsInsecureSecretOutsideDevelopment(t *testing.T) {
	setupEnv(t)
	t.Setenv("INTERNFINDER_ENV", "production")
	t.Setenv("INTERNFINDER_JWT_SECRET", "supersecretkey")

	if _, err := run(t, "token", "--actor-id", "1", "--role", "company", "--ttl", time.Minute.String()); err == nil {
		t.Fatalf("expected config validation to fail")
	}
}

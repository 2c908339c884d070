package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/config"
)

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("INTERNFINDER_ENV", "production")

	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("INTERNFINDER_ENV", "development")

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &config.Config{JWTSecret: "strongsecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}

	if cfg.Addr != ":8080" || cfg.APITimeout != 15*time.Second || cfg.MaxOpenConns != 1 || cfg.TaskWorkers != 1 {
		t.Fatalf("server defaults not populated: %+v", cfg)
	}
	if cfg.Interviews.ConflictPolicy != config.ConflictExact || cfg.Interviews.DefaultDuration != 60 || cfg.Interviews.MaxDuration != 480 {
		t.Fatalf("interview defaults not populated: %+v", cfg.Interviews)
	}
	if cfg.Reviews.OnDuplicate != config.OnDuplicateUpsert {
		t.Fatalf("review defaults not populated: %+v", cfg.Reviews)
	}
	if cfg.Applications.MaxPageSize != 500 {
		t.Fatalf("application defaults not populated: %+v", cfg.Applications)
	}
}

func TestValidate_RejectsUnknownModes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"conflict policy", func(c *config.Config) { c.Interviews.ConflictPolicy = "fuzzy" }},
		{"on duplicate", func(c *config.Config) { c.Reviews.OnDuplicate = "merge" }},
		{"duration", func(c *config.Config) { c.Interviews.DefaultDuration = 600 }},
		{"empty secret", func(c *config.Config) { c.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.JWTSecret = "strongsecret"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected Validate to fail")
			}
		})
	}
}

func TestLoadConfig_EnvAndFile(t *testing.T) {
	t.Setenv("INTERNFINDER_ADDR", ":9090")
	t.Setenv("INTERNFINDER_DATABASE_PATH", "env.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
jwt_secret: from-file
interviews:
  conflict_policy: window
reviews:
  jobless_unique: false
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.DatabasePath != "env.db" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.JWTSecret != "from-file" || cfg.Interviews.ConflictPolicy != config.ConflictWindow {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Reviews.JoblessUnique {
		t.Fatalf("expected jobless_unique overridden to false")
	}
	// keys absent from the file keep their defaults
	if !cfg.Reviews.AutoApprove || !cfg.Applications.StrictTransitions || cfg.Interviews.DefaultDuration != 60 {
		t.Fatalf("defaults lost for keys missing from file: %+v", cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

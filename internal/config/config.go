package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

// Interview conflict policies.
const (
	ConflictExact  = "exact"
	ConflictWindow = "window"
)

// Duplicate review handling.
const (
	OnDuplicateUpsert = "upsert"
	OnDuplicateReject = "reject"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	TaskWorkers    int           `yaml:"task_workers"`

	Applications ApplicationsConfig `yaml:"applications"`
	Interviews   InterviewsConfig   `yaml:"interviews"`
	Reviews      ReviewsConfig      `yaml:"reviews"`
}

type ApplicationsConfig struct {
	// StrictTransitions enforces the under_review -> interview -> accepted|rejected
	// matrix. When false any known status may be set.
	StrictTransitions bool `yaml:"strict_transitions"`
	RequireOpenJob    bool `yaml:"require_open_job"`
	MaxPageSize       int  `yaml:"max_page_size"`
}

type InterviewsConfig struct {
	ConflictPolicy  string `yaml:"conflict_policy"`
	DefaultDuration int    `yaml:"default_duration"`
	MaxDuration     int    `yaml:"max_duration"`
}

type ReviewsConfig struct {
	AutoApprove                bool   `yaml:"auto_approve"`
	JoblessUnique              bool   `yaml:"jobless_unique"`
	RequireConcludedEmployment bool   `yaml:"require_concluded_employment"`
	OnDuplicate                string `yaml:"on_duplicate"`
}

// Default returns the configuration used when no file or env override is
// present.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		JWTSecret:      insecureJWTSecret,
		APITimeout:     15 * time.Second,
		DatabasePath:   "internfinder.db",
		MaxOpenConns:   1,
		MigrateOnStart: true,
		TokenDuration:  time.Hour,
		TaskWorkers:    1,
		Applications: ApplicationsConfig{
			StrictTransitions: true,
			RequireOpenJob:    true,
			MaxPageSize:       500,
		},
		Interviews: InterviewsConfig{
			ConflictPolicy:  ConflictExact,
			DefaultDuration: 60,
			MaxDuration:     480,
		},
		Reviews: ReviewsConfig{
			AutoApprove:                true,
			JoblessUnique:              true,
			RequireConcludedEmployment: true,
			OnDuplicate:                OnDuplicateUpsert,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	cfg.Addr = getEnv("INTERNFINDER_ADDR", cfg.Addr)
	cfg.JWTSecret = getEnv("INTERNFINDER_JWT_SECRET", cfg.JWTSecret)
	cfg.DatabasePath = getEnv("INTERNFINDER_DATABASE_PATH", cfg.DatabasePath)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Validate rejects unsafe or unknown settings and fills zero values with
// defaults.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && !IsDevelopment() {
		return errors.New("jwt_secret uses the insecure default; set INTERNFINDER_JWT_SECRET or INTERNFINDER_ENV=development")
	}

	def := Default()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.APITimeout <= 0 {
		c.APITimeout = def.APITimeout
	}
	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = def.MaxOpenConns
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = def.TokenDuration
	}
	if c.TaskWorkers <= 0 {
		c.TaskWorkers = def.TaskWorkers
	}
	if c.Applications.MaxPageSize <= 0 {
		c.Applications.MaxPageSize = def.Applications.MaxPageSize
	}

	if c.Interviews.ConflictPolicy == "" {
		c.Interviews.ConflictPolicy = def.Interviews.ConflictPolicy
	}
	switch c.Interviews.ConflictPolicy {
	case ConflictExact, ConflictWindow:
	default:
		return fmt.Errorf("interviews.conflict_policy: unknown policy %q", c.Interviews.ConflictPolicy)
	}
	if c.Interviews.DefaultDuration <= 0 {
		c.Interviews.DefaultDuration = def.Interviews.DefaultDuration
	}
	if c.Interviews.MaxDuration <= 0 {
		c.Interviews.MaxDuration = def.Interviews.MaxDuration
	}
	if c.Interviews.DefaultDuration > c.Interviews.MaxDuration {
		return fmt.Errorf("interviews.default_duration %d exceeds max_duration %d", c.Interviews.DefaultDuration, c.Interviews.MaxDuration)
	}

	if c.Reviews.OnDuplicate == "" {
		c.Reviews.OnDuplicate = def.Reviews.OnDuplicate
	}
	switch c.Reviews.OnDuplicate {
	case OnDuplicateUpsert, OnDuplicateReject:
	default:
		return fmt.Errorf("reviews.on_duplicate: unknown mode %q", c.Reviews.OnDuplicate)
	}

	return nil
}

// IsDevelopment reports whether INTERNFINDER_ENV is set to development.
func IsDevelopment() bool {
	return os.Getenv("INTERNFINDER_ENV") == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

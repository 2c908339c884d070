package sqlite

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

// Fixture is directory data owned by external systems (identity provider,
// job catalog, employment records) loaded for development and tests.
type Fixture struct {
	Actors []struct {
		ID   int64       `yaml:"id"`
		Role models.Role `yaml:"role"`
		Name string      `yaml:"name"`
	} `yaml:"actors"`
	Jobs        []models.Job        `yaml:"jobs"`
	Employments []models.Employment `yaml:"employments"`
}

// ParseFixture decodes a YAML fixture. Unknown keys are rejected.
func ParseFixture(b []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture upserts every record of f in one transaction.
func (r *SQLiteRepo) LoadFixture(ctx context.Context, f *Fixture) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		for _, a := range f.Actors {
			if err := r.PutActor(ctx, models.Actor{ID: a.ID, Role: a.Role}, a.Name); err != nil {
				return err
			}
		}
		for _, j := range f.Jobs {
			if err := r.PutJob(ctx, j); err != nil {
				return err
			}
		}
		for _, e := range f.Employments {
			if err := r.PutEmployment(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadFixtureFile reads name from fsys and loads it.
func (r *SQLiteRepo) LoadFixtureFile(ctx context.Context, fsys fs.FS, name string) (*Fixture, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	f, err := ParseFixture(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := r.LoadFixture(ctx, f); err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", name, err)
	}
	r.logger.Info("fixture loaded",
		"file", name,
		"actors", len(f.Actors),
		"jobs", len(f.Jobs),
		"employments", len(f.Employments))
	return f, nil
}

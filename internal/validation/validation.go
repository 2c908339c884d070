// Package validation checks request bodies against embedded JSON schemas
// before they reach the services.
package validation

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
)

// Schema names.
const (
	ApplicationSubmit   = "application_submit"
	ApplicationStatus   = "application_status"
	InterviewSchedule   = "interview_schedule"
	InterviewReschedule = "interview_reschedule"
	InterviewStatus     = "interview_status"
	InterviewFeedback   = "interview_feedback"
	Review              = "review"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Loader holds compiled schemas keyed by name.
type Loader struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewLoader compiles every schemas/*.json file in fsys. The schema name is
// the file name without extension.
func NewLoader(fsys fs.FS) (*Loader, error) {
	l := &Loader{cache: make(map[string]*jsonschema.Schema)}
	if err := l.Reload(fsys); err != nil {
		return nil, err
	}
	return l, nil
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
	defaultErr    error
)

// Default returns the loader over the embedded request schemas.
func Default() (*Loader, error) {
	defaultOnce.Do(func() {
		defaultLoader, defaultErr = NewLoader(schemaFS)
	})
	return defaultLoader, defaultErr
}

// Reload recompiles all schemas from fsys and swaps the cache.
func (l *Loader) Reload(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "schemas/*.json")
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}

	next := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", f, err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", f, err)
		}
		next[strings.TrimSuffix(path.Base(f), ".json")] = rs
	}

	l.mu.Lock()
	l.cache = next
	l.mu.Unlock()
	return nil
}

func (l *Loader) GetSchema(name string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[name]
	l.mu.RUnlock()
	return s, ok
}

// Validate checks body against the named schema. Malformed JSON and schema
// violations come back as apperr validation errors keyed by property path.
func (l *Loader) Validate(ctx context.Context, name string, body []byte) error {
	s, ok := l.GetSchema(name)
	if !ok {
		return apperr.Newf(apperr.CodeInternal, "no schema registered for %s", name)
	}
	if !json.Valid(body) {
		return apperr.Validation("request body is not valid JSON", nil)
	}

	verrs, err := s.ValidateBytes(ctx, body)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "request body could not be validated", err)
	}
	if len(verrs) == 0 {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, v := range verrs {
		key := strings.TrimPrefix(v.PropertyPath, "/")
		if key == "" {
			key = "body"
		}
		if prev, ok := fields[key]; ok {
			fields[key] = prev + "; " + v.Message
			continue
		}
		fields[key] = v.Message
	}
	return apperr.Validation("request body failed validation", fields)
}

package io

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/slok/cupload/internal/model"
)

// PolicyRepository loads validation policies from YAML or TOML files,
// the format is selected by the file extension.
type PolicyRepository struct {
	fs fs.FS
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(filesystem fs.FS) *PolicyRepository {
	return &PolicyRepository{fs: filesystem}
}

// GetPolicy loads a validation policy file and returns a validated domain model.
// Missing fields keep the default policy values.
func (r *PolicyRepository) GetPolicy(ctx context.Context, file string) (model.ValidationPolicy, error) {
	data, err := fs.ReadFile(r.fs, file)
	if err != nil {
		return model.ValidationPolicy{}, fmt.Errorf("reading policy file: %w", err)
	}

	if ctx.Err() != nil {
		return model.ValidationPolicy{}, ctx.Err()
	}

	var cfg PolicyConfig
	switch ext := strings.ToLower(path.Ext(file)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return model.ValidationPolicy{}, fmt.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return model.ValidationPolicy{}, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		return model.ValidationPolicy{}, fmt.Errorf("unknown policy file format %q: %w", ext, model.ErrNotValid)
	}

	p := cfg.toModel()
	if err := p.Validate(); err != nil {
		return model.ValidationPolicy{}, fmt.Errorf("invalid policy: %w", err)
	}

	return p, nil
}

// PolicyConfig represents the file structure of a validation policy.
type PolicyConfig struct {
	AcceptedTypes []string `yaml:"accepted_types" toml:"accepted_types"`
	MaxSizeBytes  int64    `yaml:"max_size_bytes" toml:"max_size_bytes"`
}

func (c PolicyConfig) toModel() model.ValidationPolicy {
	p := model.DefaultValidationPolicy()
	if len(c.AcceptedTypes) > 0 {
		p.AcceptedTypes = c.AcceptedTypes
	}
	if c.MaxSizeBytes != 0 {
		p.MaxSizeBytes = c.MaxSizeBytes
	}
	return p
}

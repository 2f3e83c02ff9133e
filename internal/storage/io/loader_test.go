package io

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/cupload/internal/model"
)

func TestPolicyRepositoryGetPolicy(t *testing.T) {
	tests := map[string]struct {
		fs        fstest.MapFS
		path      string
		expPolicy model.ValidationPolicy
		expErr    bool
		errMsg    string
	}{
		"Valid YAML policy should load successfully": {
			fs: fstest.MapFS{
				"policy.yaml": &fstest.MapFile{
					Data: []byte(`accepted_types:
  - application/pdf
  - text/markdown
max_size_bytes: 2048
`),
				},
			},
			path: "policy.yaml",
			expPolicy: model.ValidationPolicy{
				AcceptedTypes: []string{"application/pdf", "text/markdown"},
				MaxSizeBytes:  2048,
			},
		},
		"Valid TOML policy should load successfully": {
			fs: fstest.MapFS{
				"policy.toml": &fstest.MapFile{
					Data: []byte(`accepted_types = ["text/plain"]
max_size_bytes = 1024
`),
				},
			},
			path: "policy.toml",
			expPolicy: model.ValidationPolicy{
				AcceptedTypes: []string{"text/plain"},
				MaxSizeBytes:  1024,
			},
		},
		"Partial policy should keep the defaults": {
			fs: fstest.MapFS{
				"policy.yml": &fstest.MapFile{
					Data: []byte(`max_size_bytes: 100
`),
				},
			},
			path: "policy.yml",
			expPolicy: func() model.ValidationPolicy {
				p := model.DefaultValidationPolicy()
				p.MaxSizeBytes = 100
				return p
			}(),
		},
		"Empty policy should be the default policy": {
			fs: fstest.MapFS{
				"policy.toml": &fstest.MapFile{Data: []byte(``)},
			},
			path:      "policy.toml",
			expPolicy: model.DefaultValidationPolicy(),
		},
		"Missing file should return error": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading policy file",
		},
		"Invalid YAML should return error": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{Data: []byte(`invalid: yaml: content: {}`)},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},
		"Invalid TOML should return error": {
			fs: fstest.MapFS{
				"invalid.toml": &fstest.MapFile{Data: []byte(`accepted_types = [`)},
			},
			path:   "invalid.toml",
			expErr: true,
			errMsg: "parsing TOML",
		},
		"Unknown format should return error": {
			fs: fstest.MapFS{
				"policy.json": &fstest.MapFile{Data: []byte(`{}`)},
			},
			path:   "policy.json",
			expErr: true,
			errMsg: "unknown policy file format",
		},
		"Negative size should return error": {
			fs: fstest.MapFS{
				"policy.yaml": &fstest.MapFile{Data: []byte(`max_size_bytes: -1`)},
			},
			path:   "policy.yaml",
			expErr: true,
			errMsg: "invalid policy",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewPolicyRepository(tc.fs)
			p, err := repo.GetPolicy(context.Background(), tc.path)

			if tc.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expPolicy, p)
		})
	}
}

func TestPolicyRepositoryGetPolicyContextCancellation(t *testing.T) {
	fs := fstest.MapFS{
		"policy.yaml": &fstest.MapFile{Data: []byte(`max_size_bytes: 100`)},
	}

	repo := NewPolicyRepository(fs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetPolicy(ctx, "policy.yaml")
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

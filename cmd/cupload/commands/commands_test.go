package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/cupload/internal/model"
)

func TestFSPaths(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	wdRel := filepath.ToSlash(wd)[1:]

	tests := map[string]struct {
		paths    []string
		expPaths []string
	}{
		"Absolute paths should lose the root.": {
			paths:    []string{"/tmp/a.pdf", "/b.txt"},
			expPaths: []string{"tmp/a.pdf", "b.txt"},
		},
		"Relative paths should be resolved from the working directory.": {
			paths:    []string{"a.pdf", "docs/../b.pdf"},
			expPaths: []string{wdRel + "/a.pdf", wdRel + "/b.pdf"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := fsPaths(test.paths)
			require.NoError(t, err)
			assert.Equal(t, test.expPaths, got)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("max_size_bytes: 100\n"), 0o644))

	tests := map[string]struct {
		file      string
		expPolicy model.ValidationPolicy
		expErr    bool
	}{
		"No file should use the default policy.": {
			expPolicy: model.DefaultValidationPolicy(),
		},
		"A file should override the defaults.": {
			file: yamlFile,
			expPolicy: func() model.ValidationPolicy {
				p := model.DefaultValidationPolicy()
				p.MaxSizeBytes = 100
				return p
			}(),
		},
		"A missing file should fail.": {
			file:   filepath.Join(dir, "missing.toml"),
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := loadPolicy(context.Background(), test.file)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expPolicy, p)
		})
	}
}

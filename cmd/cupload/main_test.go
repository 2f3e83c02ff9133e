package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, bytes.Repeat([]byte("a"), size), 0o644))
	return p
}

func TestRunUploadAndHistory(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db", "cupload.db")
	contract := writeFile(t, dir, "contract.pdf", 2048)
	notes := writeFile(t, dir, "notes.txt", 10)
	photo := writeFile(t, dir, "photo.png", 10)

	// All accepted files upload.
	var stdout, stderr bytes.Buffer
	err := Run(ctx, []string{"cupload", "--no-log", "--db-path", dbPath,
		"upload", "--uploader", "fake", "--fake-latency", "1ms", "--starts-per-second", "1000", "--no-progress", "--format", "json",
		contract, notes,
	}, nil, &stdout, &stderr)
	require.NoError(err)
	assert.Contains(stdout.String(), `"succeeded": 2`)
	assert.Contains(stdout.String(), `"file": "contract.pdf"`)

	// Rejected files make the command fail after uploading the rest.
	stdout.Reset()
	err = Run(ctx, []string{"cupload", "--no-log", "--db-path", dbPath,
		"upload", "--uploader", "fake", "--fake-latency", "1ms", "--starts-per-second", "1000", "--no-progress",
		contract, photo,
	}, nil, &stdout, &stderr)
	require.Error(err)
	assert.Contains(err.Error(), "1 files rejected, 0 uploads failed")
	assert.Contains(stdout.String(), "unsupported-type")
	assert.Contains(stdout.String(), "1 tasks: 1 succeeded")

	// History has the three recorded outcomes.
	stdout.Reset()
	err = Run(ctx, []string{"cupload", "--db-path", dbPath, "history", "--format", "json"}, nil, &stdout, &stderr)
	require.NoError(err)
	assert.Equal(3, strings.Count(stdout.String(), `"outcome": "success"`))
}

func TestRunPolicy(t *testing.T) {
	dir := t.TempDir()
	policyFile := filepath.Join(dir, "policy.toml")
	require.NoError(t, os.WriteFile(policyFile, []byte(`accepted_types = ["text/markdown"]
max_size_bytes = 1024
`), 0o644))

	tests := map[string]struct {
		args      []string
		expOutput []string
		expErr    bool
	}{
		"Default policy.": {
			args:      []string{"cupload", "policy"},
			expOutput: []string{"application/pdf", "10.0 MB"},
		},
		"Policy from file.": {
			args:      []string{"cupload", "policy", "--policy-file", policyFile, "--format", "json"},
			expOutput: []string{`"text/markdown"`, `"max_size_bytes": 1024`},
		},
		"Missing policy file should fail.": {
			args:   []string{"cupload", "policy", "--policy-file", filepath.Join(dir, "missing.yaml")},
			expErr: true,
		},
		"Unknown command should fail.": {
			args:   []string{"cupload", "wrong"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := Run(context.Background(), test.args, nil, &stdout, &stderr)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, exp := range test.expOutput {
				assert.Contains(t, stdout.String(), exp)
			}
		})
	}
}

// Package fake has an in-process uploader that never leaves the machine.
package fake

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
)

const chunkSizeBytes = 1000

// UploaderConfig is the configuration for the fake uploader.
type UploaderConfig struct {
	// Latency is how long an upload takes.
	Latency time.Duration
	// FailNames are file names that will be rejected by the fake backend.
	FailNames []string
	Logger    log.Logger
}

func (c *UploaderConfig) defaults() error {
	if c.Latency < 0 {
		return fmt.Errorf("latency can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "uploader.Fake"})
	return nil
}

// Uploader is a fake implementation of uploader.Uploader.
type Uploader struct {
	latency time.Duration
	fail    map[string]bool
	logger  log.Logger
}

// NewUploader creates a new fake uploader.
func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fail := make(map[string]bool, len(cfg.FailNames))
	for _, n := range cfg.FailNames {
		fail[n] = true
	}

	return &Uploader{
		latency: cfg.Latency,
		fail:    fail,
		logger:  cfg.Logger,
	}, nil
}

// Upload waits the configured latency and accepts the file unless it's marked to fail.
func (u *Uploader) Upload(ctx context.Context, f model.File) (*model.UploadResult, error) {
	timer := time.NewTimer(u.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if u.fail[f.Name] {
		return nil, fmt.Errorf("backend rejected %s", f.Name)
	}

	res := &model.UploadResult{
		DocumentID:     ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		ChunksInserted: int(f.Size/chunkSizeBytes) + 1,
	}
	u.logger.Debugf("Fake uploaded %s as document %s", f.Name, res.DocumentID)

	return res, nil
}

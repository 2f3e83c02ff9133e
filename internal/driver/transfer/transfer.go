// Package transfer has the production driver: it runs the real upload and
// reports an approximate progress while the transfer is in flight.
package transfer

import (
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/slok/cupload/internal/driver"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/uploader"
)

// DriverConfig is the configuration for the transfer driver.
type DriverConfig struct {
	Uploader uploader.Uploader
	// MaxConcurrent is the number of simultaneous transfers, tasks wait queued for a slot (default 3).
	MaxConcurrent int64
	// StartsPerSecond paces how fast transfers are started (default 5).
	StartsPerSecond float64
	// ProgressInterval is how often the approximate progress is reported (default 200ms).
	ProgressInterval time.Duration
	// ProgressCeiling is the maximum approximate progress before the backend answers (default 90).
	ProgressCeiling float64
	Logger          log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.Uploader == nil {
		return fmt.Errorf("uploader is required")
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 3
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent can't be negative")
	}
	if c.StartsPerSecond == 0 {
		c.StartsPerSecond = 5
	}
	if c.StartsPerSecond < 0 {
		return fmt.Errorf("starts per second can't be negative")
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = 200 * time.Millisecond
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval can't be negative")
	}
	if c.ProgressCeiling == 0 {
		c.ProgressCeiling = 90
	}
	if c.ProgressCeiling < 0 || c.ProgressCeiling >= 100 {
		return fmt.Errorf("progress ceiling must be in (0, 100)")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "driver.Transfer"})
	return nil
}

// Driver drives tasks with a real uploader.
type Driver struct {
	uploader         uploader.Uploader
	slots            *semaphore.Weighted
	limiter          *rate.Limiter
	progressInterval time.Duration
	progressCeiling  float64
	logger           log.Logger
}

// NewDriver creates a new transfer driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		uploader:         cfg.Uploader,
		slots:            semaphore.NewWeighted(cfg.MaxConcurrent),
		limiter:          rate.NewLimiter(rate.Limit(cfg.StartsPerSecond), 1),
		progressInterval: cfg.ProgressInterval,
		progressCeiling:  cfg.ProgressCeiling,
		logger:           cfg.Logger,
	}, nil
}

// Start schedules the upload of a task. The task stays queued until a
// transfer slot is available.
func (d *Driver) Start(task model.UploadTask, cb driver.Callbacks) *driver.Handle {
	h := driver.NewHandle(task.ID, cb)
	go d.run(h, task)
	return h
}

type result struct {
	res *model.UploadResult
	err error
}

func (d *Driver) run(h *driver.Handle, task model.UploadTask) {
	ctx := h.Context()
	logger := d.logger.WithValues(log.Kv{"task-id": task.ID, "file": task.Source.Name})

	if err := d.slots.Acquire(ctx, 1); err != nil {
		logger.Debugf("Transfer cancelled while queued")
		return
	}
	defer d.slots.Release(1)

	if err := d.limiter.Wait(ctx); err != nil {
		logger.Debugf("Transfer cancelled while waiting to start")
		return
	}

	if !h.Progress(0) {
		return
	}

	resC := make(chan result, 1)
	go func() {
		res, err := d.uploader.Upload(ctx, task.Source)
		resC <- result{res: res, err: err}
	}()

	ticker := time.NewTicker(d.progressInterval)
	defer ticker.Stop()

	progress := 0.0
	for {
		select {
		case <-ctx.Done():
			logger.Debugf("Transfer cancelled")
			return

		case <-ticker.C:
			// Approach the ceiling without reaching it, the backend doesn't report byte progress.
			progress += (d.progressCeiling - progress) * 0.15
			if !h.Progress(progress) {
				return
			}

		case r := <-resC:
			if r.err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warningf("Transfer failed: %s", r.err)
				h.Outcome(model.OutcomeFailure, r.err.Error())
				return
			}

			if r.res == nil {
				logger.Warningf("Transfer returned no result")
				h.Outcome(model.OutcomeFailure, "upload returned no result")
				return
			}

			logger.Debugf("Transfer completed as document %s (%d chunks)", r.res.DocumentID, r.res.ChunksInserted)
			h.Progress(100)
			h.Outcome(model.OutcomeSuccess, "")
			return
		}
	}
}

// Package simulated has a driver that fakes an upload with randomized
// progress increments and a randomized terminal outcome. Used for demos and
// environments without a backend.
package simulated

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/slok/cupload/internal/driver"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
)

// DriverConfig is the configuration for the simulated driver.
type DriverConfig struct {
	// Interval between progress increments.
	Interval time.Duration
	// MaxIncrement is the upper bound of a single progress increment.
	MaxIncrement float64
	// SuccessRatio is the probability [0, 1] of resolving a task as succeeded (default 0.9).
	SuccessRatio *float64
	// SettleDelay is the wait between reaching 100% and resolving the outcome.
	SettleDelay time.Duration
	// Rand is the random source, if missing a global one is used.
	Rand   *rand.Rand
	Logger log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.Interval == 0 {
		c.Interval = 200 * time.Millisecond
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval can't be negative")
	}

	if c.MaxIncrement == 0 {
		c.MaxIncrement = 20
	}
	if c.MaxIncrement < 0 || c.MaxIncrement > 100 {
		return fmt.Errorf("max increment must be in (0, 100]")
	}

	if c.SuccessRatio == nil {
		ratio := 0.9
		c.SuccessRatio = &ratio
	}
	if *c.SuccessRatio < 0 || *c.SuccessRatio > 1 {
		return fmt.Errorf("success ratio must be in [0, 1]")
	}

	if c.SettleDelay == 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay can't be negative")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "driver.Simulated"})

	return nil
}

// Driver is a simulated driver.Driver.
type Driver struct {
	interval     time.Duration
	maxIncrement float64
	successRatio float64
	settleDelay  time.Duration
	logger       log.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewDriver returns a new simulated driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		interval:     cfg.Interval,
		maxIncrement: cfg.MaxIncrement,
		successRatio: *cfg.SuccessRatio,
		settleDelay:  cfg.SettleDelay,
		rand:         cfg.Rand,
		logger:       cfg.Logger,
	}, nil
}

// Start starts simulating the upload of a task.
func (d *Driver) Start(task model.UploadTask, cb driver.Callbacks) *driver.Handle {
	h := driver.NewHandle(task.ID, cb)
	go d.run(h, task)
	return h
}

func (d *Driver) run(h *driver.Handle, task model.UploadTask) {
	ctx := h.Context()
	logger := d.logger.WithValues(log.Kv{"task-id": task.ID})

	if !h.Progress(0) {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	progress := 0.0
	for progress < 100 {
		select {
		case <-ctx.Done():
			logger.Debugf("Simulated upload stopped at %.0f%%", progress)
			return
		case <-ticker.C:
		}

		progress = math.Min(progress+d.randFloat()*d.maxIncrement, 100)
		if !h.Progress(progress) {
			return
		}
	}

	timer := time.NewTimer(d.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if d.randFloat() < d.successRatio {
		h.Outcome(model.OutcomeSuccess, "")
		return
	}
	h.Outcome(model.OutcomeFailure, fmt.Sprintf("failed to upload %s", task.Source.Name))
}

func (d *Driver) randFloat() float64 {
	if d.rand == nil {
		return rand.Float64()
	}

	d.randMu.Lock()
	defer d.randMu.Unlock()
	return d.rand.Float64()
}

// Package fake has a deterministic driver moved forward by explicit ticks.
package fake

import (
	"fmt"
	"sync"

	"github.com/slok/cupload/internal/driver"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
)

// OutcomeFunc decides the terminal outcome of a task and the failure reason.
type OutcomeFunc func(task model.UploadTask) (model.Outcome, string)

// AlwaysSucceed resolves every task as succeeded.
func AlwaysSucceed(model.UploadTask) (model.Outcome, string) { return model.OutcomeSuccess, "" }

// FailNames resolves as failed the tasks whose file name is in names.
func FailNames(names ...string) OutcomeFunc {
	fail := make(map[string]bool, len(names))
	for _, n := range names {
		fail[n] = true
	}
	return func(task model.UploadTask) (model.Outcome, string) {
		if fail[task.Source.Name] {
			return model.OutcomeFailure, fmt.Sprintf("failed to upload %s", task.Source.Name)
		}
		return model.OutcomeSuccess, ""
	}
}

// DriverConfig is the configuration for the fake driver.
type DriverConfig struct {
	// Steps is the number of ticks a task needs to reach 100% (default 3).
	Steps int
	// Outcome resolves the tasks once they reach 100% (default AlwaysSucceed).
	Outcome OutcomeFunc
	Logger  log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.Steps == 0 {
		c.Steps = 3
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps can't be negative")
	}
	if c.Outcome == nil {
		c.Outcome = AlwaysSucceed
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "driver.Fake"})
	return nil
}

type run struct {
	task   model.UploadTask
	handle *driver.Handle
	ticks  int
}

// Driver is a fake implementation of driver.Driver.
// Started tasks report 0% immediately and only advance when Tick is called.
type Driver struct {
	steps   int
	outcome OutcomeFunc
	logger  log.Logger

	mu      sync.Mutex
	runs    []*run
	started int
}

// NewDriver creates a new fake driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		steps:   cfg.Steps,
		outcome: cfg.Outcome,
		logger:  cfg.Logger,
	}, nil
}

// Start registers the task and reports its start.
func (d *Driver) Start(task model.UploadTask, cb driver.Callbacks) *driver.Handle {
	h := driver.NewHandle(task.ID, cb)

	d.mu.Lock()
	d.runs = append(d.runs, &run{task: task, handle: h})
	d.started++
	d.mu.Unlock()

	h.Progress(0)
	d.logger.Debugf("Started fake upload of task %s", task.ID)

	return h
}

// Tick advances every live task one step, resolving the ones that reach 100%.
// Events are delivered synchronously before Tick returns.
func (d *Driver) Tick() {
	d.mu.Lock()
	runs := d.runs
	d.runs = nil
	d.mu.Unlock()

	pending := make([]*run, 0, len(runs))
	for _, r := range runs {
		if !r.handle.Live() {
			continue
		}

		r.ticks++
		if !r.handle.Progress(float64(r.ticks) * 100 / float64(d.steps)) {
			continue
		}

		if r.ticks < d.steps {
			pending = append(pending, r)
			continue
		}

		outcome, reason := d.outcome(r.task)
		r.handle.Outcome(outcome, reason)
	}

	d.mu.Lock()
	d.runs = append(pending, d.runs...)
	d.mu.Unlock()
}

// Active returns the number of tasks still being driven.
func (d *Driver) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	active := 0
	for _, r := range d.runs {
		if r.handle.Live() {
			active++
		}
	}
	return active
}

// Started returns the number of tasks started since the driver was created.
func (d *Driver) Started() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

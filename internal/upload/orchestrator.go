// Package upload has the concurrent upload orchestrator: it accepts batches
// of files, drives every accepted file as an independent task and reports
// per-task and aggregated status to observers.
//
// All the task state is owned by a single event loop ([Orchestrator.Run]).
// Drivers never mutate state, they push events that the loop applies through
// the [Registry], and every public operation is executed as a command on the
// same loop. Because cancellation also happens on the loop, once RemoveTask
// or ClearAll return, the removed tasks can't produce any further effect.
package upload

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slok/cupload/internal/driver"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/notify"
)

// Listener receives a snapshot of the tasks after every registry mutation.
// It's called from the orchestrator loop: it must not block and must not call
// the orchestrator synchronously. The snapshot must be treated as read-only.
type Listener func(b model.Batch)

// OrchestratorConfig is the configuration for the upload orchestrator.
type OrchestratorConfig struct {
	Driver driver.Driver
	// Policy gates the submitted files, if missing the default policy is used.
	Policy *model.ValidationPolicy
	// Sink receives the terminal notifications.
	Sink   notify.Sink
	Clock  func() time.Time
	Logger log.Logger
}

func (c *OrchestratorConfig) defaults() error {
	if c.Driver == nil {
		return fmt.Errorf("driver is required")
	}

	if c.Policy == nil {
		p := model.DefaultValidationPolicy()
		c.Policy = &p
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid validation policy: %w", err)
	}

	if c.Sink == nil {
		c.Sink = notify.Noop
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "upload.Orchestrator"})

	return nil
}

// taskRun links a tracked task with the driver handle that advances it.
type taskRun struct {
	taskID string
	handle *driver.Handle
}

type listenerEntry struct {
	fn     Listener
	active atomic.Bool
}

type command struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Orchestrator coordinates the registry, the drivers and the notifications.
type Orchestrator struct {
	driver driver.Driver
	policy model.ValidationPolicy
	sink   notify.Sink
	now    func() time.Time
	logger log.Logger

	registry *Registry
	runs     map[string]*taskRun
	inbox    *inbox
	cmds     chan command
	running  atomic.Bool
	stopped  chan struct{}

	listenersMu sync.Mutex
	listeners   []*listenerEntry
}

// NewOrchestrator returns a new orchestrator. It doesn't process anything until Run is called.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Orchestrator{
		driver:   cfg.Driver,
		policy:   *cfg.Policy,
		sink:     cfg.Sink,
		now:      cfg.Clock,
		logger:   cfg.Logger,
		registry: NewRegistry(cfg.Clock),
		runs:     map[string]*taskRun{},
		inbox:    newInbox(),
		cmds:     make(chan command),
		stopped:  make(chan struct{}),
	}, nil
}

// Run runs the orchestrator loop until the context is cancelled. On exit
// every running driver is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return fmt.Errorf("orchestrator already running: %w", model.ErrNotValid)
	}
	defer close(o.stopped)
	defer o.shutdown()

	o.logger.Debugf("Upload orchestrator started")

	for {
		select {
		case <-ctx.Done():
			o.logger.Debugf("Upload orchestrator stopped")
			return nil

		case <-o.inbox.wake():
			o.applyEvents(ctx)

		case c := <-o.cmds:
			// Commands must see every event delivered before they were issued.
			o.applyEvents(ctx)
			c.fn(ctx)
			close(c.done)
		}
	}
}

// SubmitBatch validates the files and starts a task for each accepted one.
// Rejected files never become tasks. An empty batch is a no-op.
func (o *Orchestrator) SubmitBatch(ctx context.Context, files []model.File) (*model.Submission, error) {
	sub := &model.Submission{}

	accepted := make([]model.File, 0, len(files))
	for _, f := range files {
		if rej := o.policy.Check(f); rej != nil {
			o.logger.Warningf("File %s rejected: %s", f.Name, rej.Reason)
			sub.Rejections = append(sub.Rejections, *rej)
			continue
		}
		accepted = append(accepted, f)
	}

	if len(accepted) == 0 {
		return sub, nil
	}

	err := o.do(ctx, func(context.Context) {
		sub.BatchID = o.registry.NewBatchID()
		for _, f := range accepted {
			sub.TaskIDs = append(sub.TaskIDs, o.registry.Create(sub.BatchID, f))
		}
		o.publish()

		for _, id := range sub.TaskIDs {
			o.start(id)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not submit batch: %w", err)
	}

	o.logger.WithValues(log.Kv{"batch-id": sub.BatchID}).Infof("Batch submitted: %d tasks, %d rejected", len(sub.TaskIDs), len(sub.Rejections))

	return sub, nil
}

// RemoveTask cancels the task driver and stops tracking the task.
// Returns false if the task was not tracked.
func (o *Orchestrator) RemoveTask(ctx context.Context, taskID string) (bool, error) {
	var removed bool
	err := o.do(ctx, func(context.Context) {
		o.cancelRun(taskID)
		removed = o.registry.Remove(taskID)
		if removed {
			o.publish()
		}
	})
	if err != nil {
		return false, fmt.Errorf("could not remove task: %w", err)
	}

	if removed {
		o.logger.Debugf("Task %s removed", taskID)
	}

	return removed, nil
}

// ClearAll cancels every driver and stops tracking every task.
// Returns the IDs of the tasks that were tracked.
func (o *Orchestrator) ClearAll(ctx context.Context) ([]string, error) {
	var ids []string
	err := o.do(ctx, func(context.Context) {
		for id := range o.runs {
			o.cancelRun(id)
		}
		ids = o.registry.Clear()
		if len(ids) > 0 {
			o.publish()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not clear tasks: %w", err)
	}

	o.logger.Debugf("Cleared %d tasks", len(ids))

	return ids, nil
}

// Snapshot returns the current state of every tracked task.
func (o *Orchestrator) Snapshot(ctx context.Context) (model.Batch, error) {
	var b model.Batch
	err := o.do(ctx, func(context.Context) {
		b = o.registry.Snapshot()
	})
	if err != nil {
		return model.Batch{}, fmt.Errorf("could not get snapshot: %w", err)
	}

	return b, nil
}

// Observe registers a listener that will receive a snapshot on every
// mutation. The returned function unregisters it.
func (o *Orchestrator) Observe(l Listener) (unsubscribe func()) {
	e := &listenerEntry{fn: l}
	e.active.Store(true)

	o.listenersMu.Lock()
	o.listeners = append(o.listeners, e)
	o.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.active.Store(false)

			o.listenersMu.Lock()
			defer o.listenersMu.Unlock()
			o.listeners = slices.DeleteFunc(o.listeners, func(le *listenerEntry) bool { return le == e })
		})
	}
}

// do executes fn on the orchestrator loop and waits for it.
func (o *Orchestrator) do(ctx context.Context, fn func(ctx context.Context)) error {
	c := command{fn: fn, done: make(chan struct{})}

	select {
	case o.cmds <- c:
	case <-o.stopped:
		return model.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-c.done
	return nil
}

// start runs a driver for a registered task. Must be called from the loop.
func (o *Orchestrator) start(taskID string) {
	task, ok := o.registry.Get(taskID)
	if !ok {
		return
	}

	run := &taskRun{taskID: taskID}
	cb := driver.Callbacks{
		OnProgress: func(_ string, pct float64) {
			o.inbox.push(event{kind: eventProgress, run: run, progress: pct})
		},
		OnOutcome: func(_ string, outcome model.Outcome, reason string) {
			o.inbox.push(event{kind: eventOutcome, run: run, outcome: outcome, reason: reason})
		},
	}

	run.handle = o.driver.Start(task, cb)
	o.runs[taskID] = run
}

// cancelRun cancels and forgets the driver of a task. Must be called from the loop.
func (o *Orchestrator) cancelRun(taskID string) {
	run, ok := o.runs[taskID]
	if !ok {
		return
	}

	run.handle.Cancel()
	delete(o.runs, taskID)
}

// applyEvents applies the pending driver events. Must be called from the loop.
func (o *Orchestrator) applyEvents(ctx context.Context) {
	for _, ev := range o.inbox.take() {
		id := ev.run.taskID

		// Events from cancelled or finished runs are stale.
		if o.runs[id] != ev.run {
			o.logger.Debugf("Ignoring stale event for task %s", id)
			continue
		}

		switch ev.kind {
		case eventProgress:
			if o.registry.ApplyProgress(id, ev.progress) {
				o.publish()
			}

		case eventOutcome:
			if !o.registry.ApplyOutcome(id, ev.outcome, ev.reason) {
				o.logger.Debugf("Ignoring duplicated outcome for task %s", id)
				continue
			}
			delete(o.runs, id)
			o.publish()
			o.notify(ctx, id)
		}
	}
}

func (o *Orchestrator) publish() {
	o.listenersMu.Lock()
	listeners := slices.Clone(o.listeners)
	o.listenersMu.Unlock()

	for _, l := range listeners {
		if !l.active.Load() {
			continue
		}
		l.fn(o.registry.Snapshot())
	}
}

func (o *Orchestrator) notify(ctx context.Context, taskID string) {
	task, ok := o.registry.Get(taskID)
	if !ok {
		return
	}

	n := model.Notification{
		TaskID:      task.ID,
		BatchID:     task.BatchID,
		Outcome:     model.OutcomeSuccess,
		DisplayName: task.Source.Name,
		At:          o.now(),
	}
	if task.Status == model.TaskStatusFailed {
		n.Outcome = model.OutcomeFailure
		n.Reason = task.Error
	}

	if err := o.sink.Notify(ctx, n); err != nil {
		o.logger.Errorf("Could not notify task %s outcome: %s", taskID, err)
	}
}

// shutdown cancels every running driver. Must be called from the loop.
func (o *Orchestrator) shutdown() {
	for id := range o.runs {
		o.cancelRun(id)
	}
}

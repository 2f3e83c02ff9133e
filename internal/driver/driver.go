// Package driver defines the contract of the processes that move an upload
// task from its start to a terminal outcome.
//
// A driver emits zero or more progress updates followed by exactly one
// outcome, or nothing at all once its [Handle] has been cancelled.
package driver

import (
	"context"
	"sync"

	"github.com/slok/cupload/internal/model"
)

// Callbacks receive the events of a running driver.
// They are called with the handle guard held, so they must not block
// and must not cancel the handle that is calling them.
type Callbacks struct {
	OnProgress func(taskID string, pct float64)
	OnOutcome  func(taskID string, outcome model.Outcome, reason string)
}

// Driver starts the process that advances a single task.
type Driver interface {
	Start(task model.UploadTask, cb Callbacks) *Handle
}

// Handle controls one running driver. Cancellation and event delivery are
// mutually exclusive: once Cancel returns, no callback will run again.
type Handle struct {
	taskID string
	cb     Callbacks
	ctx    context.Context
	stop   context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	resolved  bool
}

// NewHandle returns a live handle for a task. Driver implementations use the
// handle context to stop their work and deliver every event through it.
func NewHandle(taskID string, cb Callbacks) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handle{
		taskID: taskID,
		cb:     cb,
		ctx:    ctx,
		stop:   cancel,
	}
}

// TaskID returns the task the handle drives.
func (h *Handle) TaskID() string { return h.taskID }

// Context is cancelled when the handle is cancelled or the outcome has been delivered.
func (h *Handle) Context() context.Context { return h.ctx }

// Progress delivers a progress update. Returns false when the handle no
// longer accepts events (cancelled or already resolved).
func (h *Handle) Progress(pct float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancelled || h.resolved {
		return false
	}

	if h.cb.OnProgress != nil {
		h.cb.OnProgress(h.taskID, pct)
	}
	return true
}

// Outcome delivers the terminal outcome. Only the first call on a live
// handle is delivered; it also releases the handle context.
func (h *Handle) Outcome(outcome model.Outcome, reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancelled || h.resolved {
		return false
	}
	h.resolved = true
	defer h.stop()

	if h.cb.OnOutcome != nil {
		h.cb.OnOutcome(h.taskID, outcome, reason)
	}
	return true
}

// Cancel stops the driver. It waits for an in-flight delivery to finish,
// after it returns no callback will be called. Safe to call many times.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()

	h.stop()
}

// Cancelled returns true if the handle has been cancelled.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Live returns true while the handle still accepts events.
func (h *Handle) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.cancelled && !h.resolved
}

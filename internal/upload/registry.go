package upload

import (
	"crypto/rand"
	"io"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/cupload/internal/model"
)

// Registry is the authoritative store of upload tasks. It enforces the task
// invariants: progress never moves backward, terminal tasks are frozen and
// updates for unknown tasks are ignored.
type Registry struct {
	tasks map[string]*model.UploadTask
	order []string
	now   func() time.Time

	entropy io.Reader
	lastMs  uint64

	mu sync.RWMutex
}

// NewRegistry returns an empty registry. If now is nil, time.Now is used.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}

	return &Registry{
		tasks:   map[string]*model.UploadTask{},
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// newID returns a ULID strictly greater than any previously returned one, so
// IDs are never reused even after their task is removed.
func (r *Registry) newID() string {
	ms := ulid.Timestamp(r.now())
	if ms < r.lastMs {
		ms = r.lastMs
	}

	for {
		id, err := ulid.New(ms, r.entropy)
		if err == nil {
			r.lastMs = ms
			return id.String()
		}
		// Monotonic entropy exhausted for this millisecond.
		ms++
	}
}

// NewBatchID allocates a batch identifier.
func (r *Registry) NewBatchID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newID()
}

// Create inserts a queued task for the file and returns its ID.
func (r *Registry) Create(batchID string, f model.File) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	r.tasks[id] = &model.UploadTask{
		ID:        id,
		BatchID:   batchID,
		Source:    f,
		Status:    model.TaskStatusQueued,
		CreatedAt: r.now(),
	}
	r.order = append(r.order, id)

	return id
}

// Get returns a copy of a task.
func (r *Registry) Get(id string) (model.UploadTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.UploadTask{}, false
	}
	return *t, true
}

// ApplyProgress moves a live task to in-progress and raises its progress
// using a monotonic clamp. Returns true if the task changed.
func (r *Registry) ApplyProgress(id string, pct float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status.IsTerminal() || math.IsNaN(pct) {
		return false
	}

	progress := math.Max(t.Progress, math.Min(pct, 100))
	changed := t.Status != model.TaskStatusInProgress || progress != t.Progress

	t.Status = model.TaskStatusInProgress
	t.Progress = progress

	return changed
}

// ApplyOutcome resolves a live task. Returns true only for the transition
// that actually happened, so callers can act exactly once per task.
func (r *Registry) ApplyOutcome(id string, outcome model.Outcome, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return false
	}

	switch outcome {
	case model.OutcomeSuccess:
		t.Status = model.TaskStatusSucceeded
		t.Progress = 100
		t.Error = ""
	default:
		if reason == "" {
			reason = "upload failed"
		}
		t.Status = model.TaskStatusFailed
		t.Error = reason
	}

	return true
}

// Remove deletes a task. Returns true if the task was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return false
	}

	delete(r.tasks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return true
}

// Clear removes every task and returns the IDs that were present, in order.
func (r *Registry) Clear() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.order
	r.tasks = map[string]*model.UploadTask{}
	r.order = nil

	return ids
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns a copy of every task in insertion order with the batch counters.
func (r *Registry) Snapshot() model.Batch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := model.Batch{Tasks: make([]model.UploadTask, 0, len(r.order))}
	for _, id := range r.order {
		t := *r.tasks[id]
		b.Tasks = append(b.Tasks, t)

		switch t.Status {
		case model.TaskStatusQueued:
			b.Counts.Queued++
		case model.TaskStatusInProgress:
			b.Counts.InProgress++
		case model.TaskStatusSucceeded:
			b.Counts.Succeeded++
		case model.TaskStatusFailed:
			b.Counts.Failed++
		}
	}

	return b
}

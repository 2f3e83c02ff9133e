package model

import (
	"fmt"
	"io"
	"time"
)

// TaskStatus represents the lifecycle state of an upload task.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusSucceeded  TaskStatus = "succeeded"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal returns true when no further transition is possible from the status.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// Outcome is the terminal result a driver resolves a task to.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// File is a borrowed reference to a caller-owned payload.
// The orchestrator only reads its metadata; drivers may open it to transfer the bytes.
type File struct {
	Name        string
	Size        int64
	ContentType string
	// Open returns a reader over the payload. Optional for drivers that don't transfer bytes.
	Open func() (io.ReadCloser, error)
}

// UploadTask is the tracked lifecycle of one file upload.
type UploadTask struct {
	ID        string
	BatchID   string
	Source    File
	Status    TaskStatus
	Progress  float64
	Error     string
	CreatedAt time.Time
}

// Batch is a point-in-time view of the tracked tasks in insertion order.
type Batch struct {
	Tasks  []UploadTask
	Counts BatchCounts
}

// BatchCounts are the per status task counters of a batch.
type BatchCounts struct {
	Queued     int
	InProgress int
	Succeeded  int
	Failed     int
}

// OfBatch returns the view restricted to the tasks of one submission.
func (b Batch) OfBatch(batchID string) Batch {
	res := Batch{Tasks: []UploadTask{}}
	for _, t := range b.Tasks {
		if t.BatchID != batchID {
			continue
		}
		res.Tasks = append(res.Tasks, t)

		switch t.Status {
		case TaskStatusQueued:
			res.Counts.Queued++
		case TaskStatusInProgress:
			res.Counts.InProgress++
		case TaskStatusSucceeded:
			res.Counts.Succeeded++
		case TaskStatusFailed:
			res.Counts.Failed++
		}
	}
	return res
}

// Total returns the number of counted tasks.
func (b BatchCounts) Total() int {
	return b.Queued + b.InProgress + b.Succeeded + b.Failed
}

// Done returns true when every counted task reached a terminal state.
func (b BatchCounts) Done() bool {
	return b.Queued == 0 && b.InProgress == 0
}

// RejectionReason is why a file was refused at submission time.
type RejectionReason string

const (
	RejectionReasonUnsupportedType RejectionReason = "unsupported-type"
	RejectionReasonTooLarge        RejectionReason = "too-large"
)

// Rejection is a file refused before it became a task.
type Rejection struct {
	File   File
	Reason RejectionReason
	Err    error
}

// Submission is the result of submitting a batch of files.
type Submission struct {
	BatchID    string
	TaskIDs    []string
	Rejections []Rejection
}

// Notification is emitted once per task when it reaches a terminal state.
type Notification struct {
	TaskID      string
	BatchID     string
	Outcome     Outcome
	DisplayName string
	Reason      string
	At          time.Time
}

// Validate validates the notification.
func (n Notification) Validate() error {
	if n.TaskID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}
	if n.Outcome != OutcomeSuccess && n.Outcome != OutcomeFailure {
		return fmt.Errorf("unknown outcome %q: %w", n.Outcome, ErrNotValid)
	}
	if n.At.IsZero() {
		return fmt.Errorf("notification time is required: %w", ErrNotValid)
	}
	return nil
}

// UploadResult is the metadata returned by an upload capability on success.
type UploadResult struct {
	DocumentID     string
	ChunksInserted int
}

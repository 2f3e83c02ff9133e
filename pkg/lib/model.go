package lib

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/cupload/internal/app/submit"
	"github.com/slok/cupload/internal/model"
)

// UploaderType identifies how the files are uploaded.
type UploaderType string

const (
	// UploaderHTTP uploads the files to the document API.
	UploaderHTTP UploaderType = "http"
	// UploaderFake accepts every file in process, useful for tests.
	UploaderFake UploaderType = "fake"
	// UploaderSimulated doesn't transfer anything, it simulates progress and
	// resolves most uploads as succeeded.
	UploaderSimulated UploaderType = "simulated"
)

// File is a file to upload. The SDK never copies the payload, it opens it
// when the upload starts.
type File struct {
	Name        string
	Size        int64
	ContentType string
	// Open returns a reader over the payload.
	Open func() (io.ReadCloser, error)

	path string
}

// FileFromPath returns a file backed by a path of the local file system.
// The size is resolved on submission.
func FileFromPath(path string) File {
	return File{
		Name:        filepath.Base(path),
		ContentType: submit.ContentType(path),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
		path:        path,
	}
}

func (f File) resolve() (File, error) {
	if f.path == "" {
		return f, nil
	}

	info, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, fmt.Errorf("file %q: %w", f.path, ErrNotFound)
		}
		return f, fmt.Errorf("could not stat %q: %w", f.path, err)
	}
	if info.IsDir() {
		return f, fmt.Errorf("%q is a directory: %w", f.path, ErrNotValid)
	}
	f.Size = info.Size()

	return f, nil
}

// TaskStatus represents the lifecycle state of an upload task.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusSucceeded  TaskStatus = "succeeded"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Task is the state of one file upload.
type Task struct {
	ID        string
	BatchID   string
	FileName  string
	SizeBytes int64
	Status    TaskStatus
	// Progress is in [0, 100] and never goes back.
	Progress float64
	// Error is the failure reason, only set when the task failed.
	Error     string
	CreatedAt time.Time
}

// BatchCounts are the number of tasks per status.
type BatchCounts struct {
	Queued     int
	InProgress int
	Succeeded  int
	Failed     int
}

// Done returns true when there are no pending tasks.
func (b BatchCounts) Done() bool { return b.Queued == 0 && b.InProgress == 0 }

// Batch is a point in time view of the tracked tasks in submission order.
type Batch struct {
	Tasks  []Task
	Counts BatchCounts
}

// Rejection is a file refused at submission, it never becomes a task.
type Rejection struct {
	FileName string
	// Reason is "unsupported-type" or "too-large".
	Reason string
}

// Submission is the result of submitting a batch.
type Submission struct {
	// BatchID is empty when every file was rejected.
	BatchID    string
	TaskIDs    []string
	Rejections []Rejection
}

// Outcome is the terminal result of a task.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Notification is the outcome of a task, delivered once per task.
type Notification struct {
	TaskID   string
	BatchID  string
	FileName string
	Outcome  Outcome
	Reason   string
	At       time.Time
}

// ValidationPolicy decides which files are accepted.
type ValidationPolicy struct {
	// AcceptedTypes are the accepted media types (e.g. "application/pdf").
	AcceptedTypes []string
	MaxSizeBytes  int64
}

// DefaultValidationPolicy returns the default policy: PDF, text and Word documents up to 10 MiB.
func DefaultValidationPolicy() ValidationPolicy {
	p := model.DefaultValidationPolicy()
	return ValidationPolicy{AcceptedTypes: p.AcceptedTypes, MaxSizeBytes: p.MaxSizeBytes}
}

// HistoryOpts filters the upload history.
type HistoryOpts struct {
	BatchID string
	// Outcome only returns one kind of outcome when set.
	Outcome Outcome
	// Limit is the max number of results, 0 means no limit.
	Limit int
}

func toInternalFile(f File) model.File {
	return model.File{Name: f.Name, Size: f.Size, ContentType: f.ContentType, Open: f.Open}
}

func toInternalPolicy(p ValidationPolicy) model.ValidationPolicy {
	return model.ValidationPolicy{AcceptedTypes: p.AcceptedTypes, MaxSizeBytes: p.MaxSizeBytes}
}

func fromInternalBatch(b model.Batch) Batch {
	res := Batch{
		Tasks: make([]Task, 0, len(b.Tasks)),
		Counts: BatchCounts{
			Queued:     b.Counts.Queued,
			InProgress: b.Counts.InProgress,
			Succeeded:  b.Counts.Succeeded,
			Failed:     b.Counts.Failed,
		},
	}
	for _, t := range b.Tasks {
		res.Tasks = append(res.Tasks, Task{
			ID:        t.ID,
			BatchID:   t.BatchID,
			FileName:  t.Source.Name,
			SizeBytes: t.Source.Size,
			Status:    TaskStatus(t.Status),
			Progress:  t.Progress,
			Error:     t.Error,
			CreatedAt: t.CreatedAt,
		})
	}
	return res
}

func fromInternalSubmission(s model.Submission) Submission {
	res := Submission{BatchID: s.BatchID, TaskIDs: s.TaskIDs, Rejections: []Rejection{}}
	for _, r := range s.Rejections {
		res.Rejections = append(res.Rejections, Rejection{FileName: r.File.Name, Reason: string(r.Reason)})
	}
	return res
}

func fromInternalNotification(n model.Notification) Notification {
	return Notification{
		TaskID:   n.TaskID,
		BatchID:  n.BatchID,
		FileName: n.DisplayName,
		Outcome:  Outcome(n.Outcome),
		Reason:   n.Reason,
		At:       n.At,
	}
}

func fromInternalNotifications(ns []model.Notification) []Notification {
	res := make([]Notification, 0, len(ns))
	for _, n := range ns {
		res = append(res, fromInternalNotification(n))
	}
	return res
}

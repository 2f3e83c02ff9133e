package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/cupload/internal/model"
)

// JSONPrinter prints upload information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskOutput struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	File        string    `json:"file"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	Stage       string    `json:"stage"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type countsOutput struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	InProgress int `json:"in_progress"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}

type batchOutput struct {
	Tasks  []taskOutput `json:"tasks"`
	Counts countsOutput `json:"counts"`
}

type rejectionOutput struct {
	File        string `json:"file"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Reason      string `json:"reason"`
}

type notificationOutput struct {
	TaskID  string    `json:"task_id"`
	BatchID string    `json:"batch_id"`
	File    string    `json:"file"`
	Outcome string    `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

type policyOutput struct {
	AcceptedTypes []string `json:"accepted_types"`
	MaxSizeBytes  int64    `json:"max_size_bytes"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintBatch prints the tasks and the batch counters in JSON format.
func (j *JSONPrinter) PrintBatch(b model.Batch) error {
	out := batchOutput{
		Tasks: make([]taskOutput, 0, len(b.Tasks)),
		Counts: countsOutput{
			Total:      b.Counts.Total(),
			Queued:     b.Counts.Queued,
			InProgress: b.Counts.InProgress,
			Succeeded:  b.Counts.Succeeded,
			Failed:     b.Counts.Failed,
		},
	}
	for _, t := range b.Tasks {
		out.Tasks = append(out.Tasks, taskOutput{
			ID:          t.ID,
			BatchID:     t.BatchID,
			File:        t.Source.Name,
			SizeBytes:   t.Source.Size,
			ContentType: t.Source.ContentType,
			Status:      string(t.Status),
			Progress:    t.Progress,
			Stage:       StageLabel(t),
			Error:       t.Error,
			CreatedAt:   t.CreatedAt.UTC(),
		})
	}

	return j.encode(out)
}

// PrintRejections prints the files refused at submission in JSON format.
func (j *JSONPrinter) PrintRejections(rejections []model.Rejection) error {
	out := make([]rejectionOutput, 0, len(rejections))
	for _, r := range rejections {
		out = append(out, rejectionOutput{
			File:        r.File.Name,
			SizeBytes:   r.File.Size,
			ContentType: r.File.ContentType,
			Reason:      string(r.Reason),
		})
	}

	return j.encode(out)
}

// PrintHistory prints the recorded upload outcomes in JSON format.
func (j *JSONPrinter) PrintHistory(notifications []model.Notification) error {
	out := make([]notificationOutput, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationOutput{
			TaskID:  n.TaskID,
			BatchID: n.BatchID,
			File:    n.DisplayName,
			Outcome: string(n.Outcome),
			Reason:  n.Reason,
			At:      n.At.UTC(),
		})
	}

	return j.encode(out)
}

// PrintPolicy prints a validation policy in JSON format.
func (j *JSONPrinter) PrintPolicy(p model.ValidationPolicy) error {
	return j.encode(policyOutput{AcceptedTypes: p.AcceptedTypes, MaxSizeBytes: p.MaxSizeBytes})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

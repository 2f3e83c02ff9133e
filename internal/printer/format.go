package printer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/slok/cupload/internal/model"
)

// FormatBytes returns a human-readable byte size string.
// Examples: "0 B", "512 B", "1.5 KB", "9.0 MB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}

	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatTimestamp returns a formatted timestamp string in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// ProgressBar renders a fixed width progress bar: "[====      ]".
func ProgressBar(pct float64, width int) string {
	filled := int(math.Floor(math.Max(0, math.Min(pct, 100)) / 100 * float64(width)))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// Stage labels shown while a document goes through the ingestion pipeline.
const (
	StageQueued     = "Queued"
	StageUploading  = "Uploading file"
	StageParsing    = "Parsing document content"
	StageEmbeddings = "Generating embeddings"
	StageComplete   = "Complete"
	StageFailed     = "Failed"
	StageCancelled  = "Cancelled"
)

// StageLabel returns the human label of the processing stage a task is in.
// In progress tasks are labeled by progress thresholds, the backend doesn't
// report the real stage.
func StageLabel(t model.UploadTask) string {
	switch t.Status {
	case model.TaskStatusQueued:
		return StageQueued
	case model.TaskStatusSucceeded:
		return StageComplete
	case model.TaskStatusFailed:
		return StageFailed
	case model.TaskStatusCancelled:
		return StageCancelled
	}

	switch {
	case t.Progress < 30:
		return StageUploading
	case t.Progress < 60:
		return StageParsing
	case t.Progress < 100:
		return StageEmbeddings
	default:
		return StageComplete
	}
}

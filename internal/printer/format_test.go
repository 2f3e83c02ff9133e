package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/printer"
)

func TestFormatBytes(t *testing.T) {
	tests := map[string]struct {
		input int64
		exp   string
	}{
		"zero bytes":                         {input: 0, exp: "0 B"},
		"negative bytes should return zero":  {input: -100, exp: "0 B"},
		"small bytes":                        {input: 512, exp: "512 B"},
		"kilobytes":                          {input: 1536, exp: "1.5 KB"},
		"the default max upload size":        {input: 10 * 1024 * 1024, exp: "10.0 MB"},
		"one gigabyte":                       {input: 1024 * 1024 * 1024, exp: "1.0 GB"},
		"just below a megabyte is kilobytes": {input: 1024*1024 - 1, exp: "1024.0 KB"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.FormatBytes(test.input))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"standard timestamp": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.UTC),
			expected: "2026-01-30 10:15:30 UTC",
		},
		"timestamp with different timezone gets converted to UTC": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.FixedZone("EST", -5*3600)),
			expected: "2026-01-30 15:15:30 UTC",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, printer.FormatTimestamp(test.time))
		})
	}
}

func TestProgressBar(t *testing.T) {
	tests := map[string]struct {
		pct float64
		exp string
	}{
		"empty":          {pct: 0, exp: "[          ]"},
		"half":           {pct: 50, exp: "[=====     ]"},
		"rounds down":    {pct: 59.9, exp: "[=====     ]"},
		"full":           {pct: 100, exp: "[==========]"},
		"over is capped": {pct: 150, exp: "[==========]"},
		"negative":       {pct: -5, exp: "[          ]"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.ProgressBar(test.pct, 10))
		})
	}
}

func TestStageLabel(t *testing.T) {
	tests := map[string]struct {
		task model.UploadTask
		exp  string
	}{
		"queued": {
			task: model.UploadTask{Status: model.TaskStatusQueued},
			exp:  printer.StageQueued,
		},
		"just started": {
			task: model.UploadTask{Status: model.TaskStatusInProgress, Progress: 0},
			exp:  printer.StageUploading,
		},
		"uploading upper bound": {
			task: model.UploadTask{Status: model.TaskStatusInProgress, Progress: 29.9},
			exp:  printer.StageUploading,
		},
		"parsing": {
			task: model.UploadTask{Status: model.TaskStatusInProgress, Progress: 30},
			exp:  printer.StageParsing,
		},
		"embeddings": {
			task: model.UploadTask{Status: model.TaskStatusInProgress, Progress: 60},
			exp:  printer.StageEmbeddings,
		},
		"in progress at 100 waiting for the outcome": {
			task: model.UploadTask{Status: model.TaskStatusInProgress, Progress: 100},
			exp:  printer.StageComplete,
		},
		"succeeded": {
			task: model.UploadTask{Status: model.TaskStatusSucceeded, Progress: 100},
			exp:  printer.StageComplete,
		},
		"failed": {
			task: model.UploadTask{Status: model.TaskStatusFailed, Progress: 40},
			exp:  printer.StageFailed,
		},
		"cancelled": {
			task: model.UploadTask{Status: model.TaskStatusCancelled},
			exp:  printer.StageCancelled,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.StageLabel(test.task))
		})
	}
}

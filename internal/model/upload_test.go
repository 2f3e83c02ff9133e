package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/cupload/internal/model"
)

func TestTaskStatusIsTerminal(t *testing.T) {
	tests := map[string]struct {
		status model.TaskStatus
		exp    bool
	}{
		"queued":      {status: model.TaskStatusQueued},
		"in progress": {status: model.TaskStatusInProgress},
		"succeeded":   {status: model.TaskStatusSucceeded, exp: true},
		"failed":      {status: model.TaskStatusFailed, exp: true},
		"cancelled":   {status: model.TaskStatusCancelled, exp: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, test.status.IsTerminal())
		})
	}
}

func TestBatchCounts(t *testing.T) {
	tests := map[string]struct {
		counts   model.BatchCounts
		expTotal int
		expDone  bool
	}{
		"empty batch": {
			counts:  model.BatchCounts{},
			expDone: true,
		},
		"pending tasks": {
			counts:   model.BatchCounts{Queued: 1, InProgress: 1, Succeeded: 1},
			expTotal: 3,
		},
		"every task terminal": {
			counts:   model.BatchCounts{Succeeded: 2, Failed: 1},
			expTotal: 3,
			expDone:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expTotal, test.counts.Total())
			assert.Equal(t, test.expDone, test.counts.Done())
		})
	}
}

func TestNotificationValidate(t *testing.T) {
	base := model.Notification{
		TaskID:      "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		BatchID:     "01ARZ3NDEKTSV4RRFFQ69G5FAA",
		Outcome:     model.OutcomeSuccess,
		DisplayName: "contract.pdf",
		At:          time.Now().UTC(),
	}

	tests := map[string]struct {
		notification func() model.Notification
		expErr       bool
	}{
		"valid notification": {
			notification: func() model.Notification { return base },
		},
		"missing task id": {
			notification: func() model.Notification {
				n := base
				n.TaskID = ""
				return n
			},
			expErr: true,
		},
		"unknown outcome": {
			notification: func() model.Notification {
				n := base
				n.Outcome = "maybe"
				return n
			},
			expErr: true,
		},
		"missing time": {
			notification: func() model.Notification {
				n := base
				n.At = time.Time{}
				return n
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.notification().Validate()
			if test.expErr {
				assert.True(t, errors.Is(err, model.ErrNotValid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBatchOfBatch(t *testing.T) {
	b := model.Batch{
		Tasks: []model.UploadTask{
			{ID: "t1", BatchID: "b1", Status: model.TaskStatusSucceeded},
			{ID: "t2", BatchID: "b2", Status: model.TaskStatusInProgress},
			{ID: "t3", BatchID: "b1", Status: model.TaskStatusFailed},
			{ID: "t4", BatchID: "b1", Status: model.TaskStatusQueued},
		},
		Counts: model.BatchCounts{Queued: 1, InProgress: 1, Succeeded: 1, Failed: 1},
	}

	tests := map[string]struct {
		batchID   string
		expIDs    []string
		expCounts model.BatchCounts
	}{
		"Existing batch should keep only its tasks.": {
			batchID:   "b1",
			expIDs:    []string{"t1", "t3", "t4"},
			expCounts: model.BatchCounts{Queued: 1, Succeeded: 1, Failed: 1},
		},
		"Missing batch should be empty.": {
			batchID: "b3",
			expIDs:  []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := b.OfBatch(test.batchID)

			ids := []string{}
			for _, task := range got.Tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, test.expIDs, ids)
			assert.Equal(t, test.expCounts, got.Counts)
		})
	}
}

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/storage"
	"github.com/slok/cupload/internal/storage/memory"
)

func notification(taskID, batchID string, outcome model.Outcome, at time.Time) model.Notification {
	n := model.Notification{
		TaskID:      taskID,
		BatchID:     batchID,
		Outcome:     outcome,
		DisplayName: taskID + ".pdf",
		At:          at,
	}
	if outcome == model.OutcomeFailure {
		n.Reason = "failed to upload " + n.DisplayName
	}
	return n
}

func TestRepositoryRecordOutcome(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		records  []model.Notification
		expErrAt int
		expErr   error
	}{
		"Recording different tasks should work.": {
			records: []model.Notification{
				notification("t1", "b1", model.OutcomeSuccess, now),
				notification("t2", "b1", model.OutcomeFailure, now),
			},
			expErrAt: -1,
		},
		"Recording the same task twice should fail.": {
			records: []model.Notification{
				notification("t1", "b1", model.OutcomeSuccess, now),
				notification("t1", "b1", model.OutcomeFailure, now),
			},
			expErrAt: 1,
			expErr:   model.ErrAlreadyExists,
		},
		"Recording an invalid notification should fail.": {
			records: []model.Notification{
				notification("", "b1", model.OutcomeSuccess, now),
			},
			expErrAt: 0,
			expErr:   model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			for i, n := range test.records {
				err := repo.RecordOutcome(context.Background(), n)
				if i == test.expErrAt {
					assert.True(t, errors.Is(err, test.expErr))
					return
				}
				require.NoError(t, err)
			}
		})
	}
}

func TestRepositoryListOutcomes(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	failure := model.OutcomeFailure

	records := []model.Notification{
		notification("t1", "b1", model.OutcomeSuccess, now),
		notification("t2", "b1", model.OutcomeFailure, now.Add(time.Second)),
		notification("t3", "b2", model.OutcomeSuccess, now.Add(2*time.Second)),
		notification("t4", "b2", model.OutcomeFailure, now.Add(3*time.Second)),
	}

	tests := map[string]struct {
		opts       storage.ListOutcomesOpts
		expTaskIDs []string
	}{
		"Without filters should return everything newest first.": {
			expTaskIDs: []string{"t4", "t3", "t2", "t1"},
		},
		"Filtering by batch.": {
			opts:       storage.ListOutcomesOpts{BatchID: "b1"},
			expTaskIDs: []string{"t2", "t1"},
		},
		"Filtering by outcome.": {
			opts:       storage.ListOutcomesOpts{Outcome: &failure},
			expTaskIDs: []string{"t4", "t2"},
		},
		"Limiting the results.": {
			opts:       storage.ListOutcomesOpts{Limit: 3},
			expTaskIDs: []string{"t4", "t3", "t2"},
		},
		"Missing batch should return nothing.": {
			opts:       storage.ListOutcomesOpts{BatchID: "b3"},
			expTaskIDs: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)
			for _, n := range records {
				require.NoError(t, repo.RecordOutcome(ctx, n))
			}

			got, err := repo.ListOutcomes(ctx, test.opts)
			require.NoError(t, err)

			gotIDs := []string{}
			for _, n := range got {
				gotIDs = append(gotIDs, n.TaskID)
			}
			assert.Equal(t, test.expTaskIDs, gotIDs)
		})
	}
}

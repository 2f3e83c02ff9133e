package storage

import (
	"context"

	"github.com/slok/cupload/internal/model"
)

// ListOutcomesOpts filters the recorded outcomes.
type ListOutcomesOpts struct {
	// BatchID only returns the outcomes of a batch.
	BatchID string
	// Outcome only returns the outcomes of one kind.
	Outcome *model.Outcome
	// Limit is the max number of results, 0 means no limit.
	Limit int
}

// HistoryRepository is the interface for the upload history persistence.
//
// The history stores the terminal notification of every task, it's not
// the live state of the orchestrator.
type HistoryRepository interface {
	// RecordOutcome stores a task notification. Recording the same task twice
	// returns model.ErrAlreadyExists.
	RecordOutcome(ctx context.Context, n model.Notification) error
	// ListOutcomes returns the recorded notifications, newest first.
	ListOutcomes(ctx context.Context, opts ListOutcomesOpts) ([]model.Notification, error)
}

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name HistoryRepository --structname MockHistoryRepository

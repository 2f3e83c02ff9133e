package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/storage"
)

// HistorySink records notifications in an upload history repository.
type HistorySink struct {
	repo storage.HistoryRepository
}

// NewHistorySink returns a new history sink.
func NewHistorySink(repo storage.HistoryRepository) (*HistorySink, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	return &HistorySink{repo: repo}, nil
}

// Notify records the notification. A notification that was already recorded is not an error.
func (h *HistorySink) Notify(ctx context.Context, n model.Notification) error {
	err := h.repo.RecordOutcome(ctx, n)
	if err != nil && !errors.Is(err, model.ErrAlreadyExists) {
		return fmt.Errorf("could not record outcome: %w", err)
	}
	return nil
}

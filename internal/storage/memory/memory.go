package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.HistoryRepository.
type Repository struct {
	outcomes map[string]model.Notification
	order    []string
	mu       sync.RWMutex
	logger   log.Logger
}

var _ storage.HistoryRepository = &Repository{}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		outcomes: make(map[string]model.Notification),
		logger:   cfg.Logger,
	}, nil
}

// RecordOutcome stores a task notification.
func (r *Repository) RecordOutcome(ctx context.Context, n model.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outcomes[n.TaskID]; ok {
		return fmt.Errorf("outcome of task %s: %w", n.TaskID, model.ErrAlreadyExists)
	}

	r.outcomes[n.TaskID] = n
	r.order = append(r.order, n.TaskID)
	r.logger.Debugf("Recorded outcome of task %s", n.TaskID)

	return nil
}

// ListOutcomes returns the recorded notifications, newest first.
func (r *Repository) ListOutcomes(ctx context.Context, opts storage.ListOutcomesOpts) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := []model.Notification{}
	for _, id := range slices.Backward(r.order) {
		n := r.outcomes[id]
		if opts.BatchID != "" && n.BatchID != opts.BatchID {
			continue
		}
		if opts.Outcome != nil && n.Outcome != *opts.Outcome {
			continue
		}

		res = append(res, n)
		if opts.Limit > 0 && len(res) >= opts.Limit {
			break
		}
	}

	return res, nil
}

package history

import (
	"context"
	"fmt"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.HistoryRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the recorded upload outcomes.
type Service struct {
	repo   storage.HistoryRepository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	BatchID string
	// OutcomeFilter is an optional filter to only show one kind of outcome.
	OutcomeFilter *model.Outcome
	Limit         int
}

// Run lists the recorded outcomes, newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Notification, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("limit can't be negative: %w", model.ErrNotValid)
	}
	if req.OutcomeFilter != nil && *req.OutcomeFilter != model.OutcomeSuccess && *req.OutcomeFilter != model.OutcomeFailure {
		return nil, fmt.Errorf("unknown outcome %q: %w", *req.OutcomeFilter, model.ErrNotValid)
	}

	s.logger.Debugf("listing upload history with batch %q and outcome %v", req.BatchID, req.OutcomeFilter)

	ns, err := s.repo.ListOutcomes(ctx, storage.ListOutcomesOpts{
		BatchID: req.BatchID,
		Outcome: req.OutcomeFilter,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("could not list outcomes: %w", err)
	}

	s.logger.Debugf("found %d outcomes", len(ns))
	return ns, nil
}

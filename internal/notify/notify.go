// Package notify has the sinks that receive the terminal notification of
// every upload task.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
)

// Sink receives exactly one notification per task that reaches a terminal state.
type Sink interface {
	Notify(ctx context.Context, n model.Notification) error
}

//go:generate mockery --case underscore --output notifymock --outpkg notifymock --name Sink --structname MockSink

// SinkFunc is a helper to create sinks from functions.
type SinkFunc func(ctx context.Context, n model.Notification) error

// Notify satisfies Sink.
func (f SinkFunc) Notify(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// Noop is a sink that discards notifications.
var Noop = SinkFunc(func(context.Context, model.Notification) error { return nil })

// NewLogSink returns a sink that logs every notification, successes as info
// and failures as warnings.
func NewLogSink(logger log.Logger) Sink {
	if logger == nil {
		logger = log.Noop
	}
	logger = logger.WithValues(log.Kv{"svc": "notify.Log"})

	return SinkFunc(func(_ context.Context, n model.Notification) error {
		l := logger.WithValues(log.Kv{"task-id": n.TaskID, "batch-id": n.BatchID})
		switch n.Outcome {
		case model.OutcomeSuccess:
			l.Infof("Upload complete: %s uploaded successfully", n.DisplayName)
		default:
			l.Warningf("Upload failed: %s: %s", n.DisplayName, n.Reason)
		}
		return nil
	})
}

// NewMultiSink returns a sink that notifies every sink in order. All sinks
// are notified even if some fail, the errors are joined.
func NewMultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, n model.Notification) error {
		var errs []error
		for i, s := range sinks {
			if err := s.Notify(ctx, n); err != nil {
				errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
			}
		}
		return errors.Join(errs...)
	})
}

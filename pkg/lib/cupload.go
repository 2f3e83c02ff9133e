package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slok/cupload/internal/app/history"
	"github.com/slok/cupload/internal/driver"
	"github.com/slok/cupload/internal/driver/simulated"
	"github.com/slok/cupload/internal/driver/transfer"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/notify"
	"github.com/slok/cupload/internal/storage"
	"github.com/slok/cupload/internal/storage/memory"
	"github.com/slok/cupload/internal/storage/sqlite"
	"github.com/slok/cupload/internal/upload"
	"github.com/slok/cupload/internal/uploader"
	uploaderfake "github.com/slok/cupload/internal/uploader/fake"
	uploaderhttp "github.com/slok/cupload/internal/uploader/http"
)

const (
	defaultDataDir       = ".cupload"
	defaultDBFile        = "cupload.db"
	defaultAPIURL        = "http://localhost:8000"
	defaultMaxConcurrent = 3
)

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} uploads to a local document API
// and records the outcomes in ~/.cupload/cupload.db.
type Config struct {
	// DBPath is the SQLite database path of the upload history.
	// Default: ~/.cupload/cupload.db.
	DBPath string

	// InMemoryHistory keeps the upload history in memory instead of SQLite.
	InMemoryHistory bool

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Uploader selects the upload backend.
	// Default: [UploaderHTTP].
	Uploader UploaderType

	// APIURL is the document API base URL, only used by [UploaderHTTP].
	// Default: http://localhost:8000.
	APIURL string

	// Token is the document API bearer token, only used by [UploaderHTTP].
	Token string

	// MaxConcurrent is the max number of simultaneous transfers.
	// Default: 3.
	MaxConcurrent int64

	// FakeLatency is how long each upload takes with [UploaderFake].
	FakeLatency time.Duration

	// Policy decides which files are accepted.
	// Default: [DefaultValidationPolicy].
	Policy *ValidationPolicy

	// OnNotification is called once per task when it finishes. It's called
	// serially and must not block.
	OnNotification func(Notification)
}

func (c *Config) defaults() error {
	if c.DBPath == "" && !c.InMemoryHistory {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	switch c.Uploader {
	case "":
		c.Uploader = UploaderHTTP
	case UploaderHTTP, UploaderFake, UploaderSimulated:
	default:
		return fmt.Errorf("unsupported uploader type: %s: %w", c.Uploader, ErrNotValid)
	}

	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}

	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent can't be negative: %w", ErrNotValid)
	}

	return nil
}

// Client is the main SDK entry point to upload documents.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	orch    *upload.Orchestrator
	history *history.Service
	logger  log.Logger

	stop      context.CancelFunc
	stopped   chan error
	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
	closeRepo func() error
}

// New creates a new SDK client and starts its upload orchestrator.
//
// The caller must call [Client.Close] when done to stop the running uploads
// and release the history database. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d, err := newDriver(cfg)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create driver: %w", err))
	}

	var (
		repo      storage.HistoryRepository
		closeRepo = func() error { return nil }
	)
	if cfg.InMemoryHistory {
		repo, err = memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
	} else {
		r, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: cfg.DBPath,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		repo, closeRepo = r, r.Close
	}

	hs, err := notify.NewHistorySink(repo)
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("could not create history sink: %w", err)
	}
	sinks := []notify.Sink{notify.NewLogSink(cfg.Logger), hs}
	if cfg.OnNotification != nil {
		fn := cfg.OnNotification
		sinks = append(sinks, notify.SinkFunc(func(_ context.Context, n model.Notification) error {
			fn(fromInternalNotification(n))
			return nil
		}))
	}

	var policy *model.ValidationPolicy
	if cfg.Policy != nil {
		p := toInternalPolicy(*cfg.Policy)
		policy = &p
	}

	orch, err := upload.NewOrchestrator(upload.OrchestratorConfig{
		Driver: d,
		Policy: policy,
		Sink:   notify.NewMultiSink(sinks...),
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = closeRepo()
		return nil, mapError(fmt.Errorf("could not create orchestrator: %w", err))
	}

	hsvc, err := history.NewService(history.ServiceConfig{Repository: repo, Logger: cfg.Logger})
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("could not create history service: %w", err)
	}

	// The loop lives until Close, not until the construction context ends.
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	stopped := make(chan error, 1)
	go func() { stopped <- orch.Run(runCtx) }()

	return &Client{
		orch:      orch,
		history:   hsvc,
		logger:    cfg.Logger,
		stop:      stop,
		stopped:   stopped,
		closeRepo: closeRepo,
	}, nil
}

func newDriver(cfg Config) (driver.Driver, error) {
	if cfg.Uploader == UploaderSimulated {
		return simulated.NewDriver(simulated.DriverConfig{Logger: cfg.Logger})
	}

	var (
		u   uploader.Uploader
		err error
	)
	switch cfg.Uploader {
	case UploaderFake:
		u, err = uploaderfake.NewUploader(uploaderfake.UploaderConfig{Latency: cfg.FakeLatency, Logger: cfg.Logger})
	default:
		u, err = uploaderhttp.NewUploader(uploaderhttp.UploaderConfig{APIURL: cfg.APIURL, Token: cfg.Token, Logger: cfg.Logger})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create uploader: %w", err)
	}

	return transfer.NewDriver(transfer.DriverConfig{
		Uploader:      u,
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        cfg.Logger,
	})
}

// Close cancels the running uploads and releases the history database.
// After Close returns, the client operations return [ErrClosed].
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.stop()
		if err := <-c.stopped; err != nil {
			c.closeErr = err
			return
		}
		c.closeErr = c.closeRepo()
	})
	return c.closeErr
}

// SubmitBatch validates the files and starts one upload per accepted file.
// Rejected files are reported in the submission and never uploaded.
func (c *Client) SubmitBatch(ctx context.Context, files []File) (*Submission, error) {
	mfs := make([]model.File, 0, len(files))
	for _, f := range files {
		rf, err := f.resolve()
		if err != nil {
			return nil, err
		}
		mfs = append(mfs, toInternalFile(rf))
	}

	sub, err := c.orch.SubmitBatch(ctx, mfs)
	if err != nil {
		return nil, mapError(err)
	}

	res := fromInternalSubmission(*sub)
	return &res, nil
}

// RemoveTask cancels the upload of a task and forgets it. It returns false
// when the task is not tracked. No progress or notification of the task is
// delivered after RemoveTask returns.
func (c *Client) RemoveTask(ctx context.Context, taskID string) (bool, error) {
	ok, err := c.orch.RemoveTask(ctx, taskID)
	return ok, mapError(err)
}

// ClearAll cancels every upload and forgets all the tasks. It returns the
// removed task IDs.
func (c *Client) ClearAll(ctx context.Context) ([]string, error) {
	ids, err := c.orch.ClearAll(ctx)
	return ids, mapError(err)
}

// Snapshot returns the current state of every tracked task.
func (c *Client) Snapshot(ctx context.Context) (*Batch, error) {
	b, err := c.orch.Snapshot(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	res := fromInternalBatch(b)
	return &res, nil
}

// Observe registers an observer that receives the state of every task after
// each change. The returned function unregisters it.
func (c *Client) Observe(fn func(Batch)) (unsubscribe func()) {
	return c.orch.Observe(func(b model.Batch) { fn(fromInternalBatch(b)) })
}

// History returns the recorded upload outcomes, newest first.
func (c *Client) History(ctx context.Context, opts HistoryOpts) ([]Notification, error) {
	// The history repository is released on close, it doesn't go through the loop.
	if c.closed.Load() {
		return nil, mapError(fmt.Errorf("could not list history: %w", model.ErrStopped))
	}

	req := history.Request{BatchID: opts.BatchID, Limit: opts.Limit}
	if opts.Outcome != "" {
		o := model.Outcome(opts.Outcome)
		req.OutcomeFilter = &o
	}

	ns, err := c.history.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalNotifications(ns), nil
}

package submit

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/upload"
)

// Orchestrator is the part of the upload orchestrator used by the service.
type Orchestrator interface {
	SubmitBatch(ctx context.Context, files []model.File) (*model.Submission, error)
	RemoveTask(ctx context.Context, taskID string) (bool, error)
	Snapshot(ctx context.Context) (model.Batch, error)
	Observe(l upload.Listener) (unsubscribe func())
}

// ServiceConfig is the configuration for the submit service.
type ServiceConfig struct {
	Orchestrator Orchestrator
	// FS is where the files are read from.
	FS     fs.FS
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Orchestrator == nil {
		return fmt.Errorf("orchestrator is required")
	}

	if c.FS == nil {
		return fmt.Errorf("file system is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Submit"})

	return nil
}

// Service submits a batch of files and waits until every accepted file
// reaches a terminal state.
type Service struct {
	orch   Orchestrator
	fs     fs.FS
	logger log.Logger
}

// NewService creates a new submit service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		orch:   cfg.Orchestrator,
		fs:     cfg.FS,
		logger: cfg.Logger,
	}, nil
}

// Request represents the submit request parameters.
type Request struct {
	// Paths of the files to upload, relative to the service file system.
	Paths []string
	// OnProgress receives the batch state on every change. Optional.
	// It's called from the orchestrator loop so it must not block.
	OnProgress func(b model.Batch)
}

// Result is the final state of a submitted batch.
type Result struct {
	Submission model.Submission
	Batch      model.Batch
}

// Run submits the files and blocks until all the accepted ones finish.
// If the context is cancelled the pending tasks are removed.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	files := make([]model.File, 0, len(req.Paths))
	for _, p := range req.Paths {
		f, err := s.file(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	// Observe before submitting so no change is lost.
	var batchID string
	ready := make(chan struct{})
	changed := make(chan struct{}, 1)
	unsubscribe := s.orch.Observe(func(b model.Batch) {
		select {
		case <-ready:
		default:
			return
		}
		if req.OnProgress != nil {
			req.OnProgress(b.OfBatch(batchID))
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	sub, err := s.orch.SubmitBatch(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("could not submit files: %w", err)
	}
	res := &Result{Submission: *sub, Batch: model.Batch{Tasks: []model.UploadTask{}}}
	if len(sub.TaskIDs) == 0 {
		return res, nil
	}
	batchID = sub.BatchID
	close(ready)

	logger := s.logger.WithValues(log.Kv{"batch-id": batchID})
	logger.Infof("Uploading %d files", len(sub.TaskIDs))

	for {
		b, err := s.orch.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, s.abort(ctx, sub.TaskIDs)
			}
			return nil, fmt.Errorf("could not get upload state: %w", err)
		}

		res.Batch = b.OfBatch(batchID)
		if res.Batch.Counts.Done() {
			logger.Infof("Batch finished: %d succeeded, %d failed", res.Batch.Counts.Succeeded, res.Batch.Counts.Failed)
			return res, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, s.abort(ctx, sub.TaskIDs)
		}
	}
}

// abort removes the tasks of an interrupted batch.
func (s *Service) abort(ctx context.Context, taskIDs []string) error {
	cctx := context.WithoutCancel(ctx)
	removed := 0
	for _, id := range taskIDs {
		ok, err := s.orch.RemoveTask(cctx, id)
		if err != nil {
			s.logger.Warningf("Could not remove task %s: %s", id, err)
			continue
		}
		if ok {
			removed++
		}
	}
	s.logger.Warningf("Upload interrupted, %d tasks removed", removed)

	return fmt.Errorf("upload interrupted: %w", ctx.Err())
}

func (s *Service) file(p string) (model.File, error) {
	info, err := fs.Stat(s.fs, p)
	if err != nil {
		return model.File{}, fmt.Errorf("could not stat %s: %w", p, model.ErrNotFound)
	}
	if info.IsDir() {
		return model.File{}, fmt.Errorf("%s is a directory: %w", p, model.ErrNotValid)
	}

	return model.File{
		Name:        path.Base(p),
		Size:        info.Size(),
		ContentType: ContentType(p),
		Open:        func() (io.ReadCloser, error) { return s.fs.Open(p) },
	}, nil
}

var knownTypes = map[string]string{
	".pdf":  model.MediaTypePDF,
	".txt":  model.MediaTypeText,
	".docx": model.MediaTypeDOCX,
	".md":   "text/markdown",
}

// ContentType returns the media type of a file based on its extension.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

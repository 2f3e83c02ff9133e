package submit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/cupload/internal/app/submit"
	"github.com/slok/cupload/internal/driver/transfer"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/upload"
	uploaderfake "github.com/slok/cupload/internal/uploader/fake"
)

func newOrchestrator(t *testing.T, latency time.Duration, failNames ...string) *upload.Orchestrator {
	t.Helper()

	u, err := uploaderfake.NewUploader(uploaderfake.UploaderConfig{Latency: latency, FailNames: failNames})
	require.NoError(t, err)

	d, err := transfer.NewDriver(transfer.DriverConfig{
		Uploader:         u,
		MaxConcurrent:    2,
		StartsPerSecond:  1000,
		ProgressInterval: time.Millisecond,
	})
	require.NoError(t, err)

	o, err := upload.NewOrchestrator(upload.OrchestratorConfig{Driver: d})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- o.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errC)
	})

	return o
}

var testFS = fstest.MapFS{
	"docs/contract.pdf": &fstest.MapFile{Data: make([]byte, 2048)},
	"docs/notes.txt":    &fstest.MapFile{Data: []byte("some notes")},
	"docs/report.docx":  &fstest.MapFile{Data: make([]byte, 100)},
	"docs/photo.png":    &fstest.MapFile{Data: make([]byte, 100)},
	"docs/big.pdf":      &fstest.MapFile{Data: make([]byte, 11*1024*1024)},
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config submit.ServiceConfig
		expErr bool
	}{
		"missing orchestrator should fail": {
			config: submit.ServiceConfig{FS: testFS},
			expErr: true,
		},
		"missing file system should fail": {
			config: submit.ServiceConfig{Orchestrator: &upload.Orchestrator{}},
			expErr: true,
		},
		"valid config should create service": {
			config: submit.ServiceConfig{Orchestrator: &upload.Orchestrator{}, FS: testFS, Logger: log.Noop},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := submit.NewService(test.config)
			if test.expErr {
				require.Error(t, err)
				require.Nil(t, svc)
			} else {
				require.NoError(t, err)
				require.NotNil(t, svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		paths         []string
		failNames     []string
		expStatuses   map[string]model.TaskStatus
		expRejections map[string]model.RejectionReason
		expErr        error
	}{
		"Every accepted file should finish.": {
			paths: []string{"docs/contract.pdf", "docs/notes.txt", "docs/report.docx"},
			expStatuses: map[string]model.TaskStatus{
				"contract.pdf": model.TaskStatusSucceeded,
				"notes.txt":    model.TaskStatusSucceeded,
				"report.docx":  model.TaskStatusSucceeded,
			},
			expRejections: map[string]model.RejectionReason{},
		},
		"Failed uploads should be reported as failed.": {
			paths:     []string{"docs/contract.pdf", "docs/notes.txt"},
			failNames: []string{"notes.txt"},
			expStatuses: map[string]model.TaskStatus{
				"contract.pdf": model.TaskStatusSucceeded,
				"notes.txt":    model.TaskStatusFailed,
			},
			expRejections: map[string]model.RejectionReason{},
		},
		"Invalid files should be rejected and the rest uploaded.": {
			paths: []string{"docs/photo.png", "docs/big.pdf", "docs/contract.pdf"},
			expStatuses: map[string]model.TaskStatus{
				"contract.pdf": model.TaskStatusSucceeded,
			},
			expRejections: map[string]model.RejectionReason{
				"photo.png": model.RejectionReasonUnsupportedType,
				"big.pdf":   model.RejectionReasonTooLarge,
			},
		},
		"Only invalid files should not create a batch.": {
			paths:       []string{"docs/photo.png"},
			expStatuses: map[string]model.TaskStatus{},
			expRejections: map[string]model.RejectionReason{
				"photo.png": model.RejectionReasonUnsupportedType,
			},
		},
		"Missing files should fail.": {
			paths:  []string{"docs/contract.pdf", "docs/missing.pdf"},
			expErr: model.ErrNotFound,
		},
		"Directories should fail.": {
			paths:  []string{"docs"},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			o := newOrchestrator(t, time.Millisecond, test.failNames...)
			svc, err := submit.NewService(submit.ServiceConfig{Orchestrator: o, FS: testFS})
			require.NoError(err)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			res, err := svc.Run(ctx, submit.Request{Paths: test.paths})
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr))
				return
			}
			require.NoError(err)

			gotStatuses := map[string]model.TaskStatus{}
			for _, task := range res.Batch.Tasks {
				gotStatuses[task.Source.Name] = task.Status
			}
			assert.Equal(test.expStatuses, gotStatuses)

			gotRejections := map[string]model.RejectionReason{}
			for _, r := range res.Submission.Rejections {
				gotRejections[r.File.Name] = r.Reason
			}
			assert.Equal(test.expRejections, gotRejections)
			assert.True(res.Batch.Counts.Done())
		})
	}
}

func TestServiceRunReportsProgress(t *testing.T) {
	require := require.New(t)

	o := newOrchestrator(t, 5*time.Millisecond)
	svc, err := submit.NewService(submit.ServiceConfig{Orchestrator: o, FS: testFS})
	require.NoError(err)

	var (
		mu       sync.Mutex
		progress []float64
	)
	res, err := svc.Run(context.Background(), submit.Request{
		Paths: []string{"docs/contract.pdf"},
		OnProgress: func(b model.Batch) {
			mu.Lock()
			defer mu.Unlock()
			for _, task := range b.Tasks {
				progress = append(progress, task.Progress)
			}
		},
	})
	require.NoError(err)
	require.Len(res.Batch.Tasks, 1)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 100.0, progress[len(progress)-1])
}

func TestServiceRunInterrupted(t *testing.T) {
	require := require.New(t)

	o := newOrchestrator(t, time.Hour)
	svc, err := submit.NewService(submit.ServiceConfig{Orchestrator: o, FS: testFS})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	_, err = svc.Run(ctx, submit.Request{
		Paths: []string{"docs/contract.pdf", "docs/notes.txt"},
		OnProgress: func(b model.Batch) {
			if b.Counts.InProgress > 0 {
				once.Do(cancel)
			}
		},
	})
	require.Error(err)
	assert.True(t, errors.Is(err, context.Canceled))

	b, err := o.Snapshot(context.Background())
	require.NoError(err)
	assert.Empty(t, b.Tasks)
}

func TestContentType(t *testing.T) {
	tests := map[string]struct {
		name string
		exp  string
	}{
		"pdf":              {name: "a.pdf", exp: model.MediaTypePDF},
		"upper case pdf":   {name: "A.PDF", exp: model.MediaTypePDF},
		"text":             {name: "notes.txt", exp: model.MediaTypeText},
		"word":             {name: "report.docx", exp: model.MediaTypeDOCX},
		"png":              {name: "photo.png", exp: "image/png"},
		"unknown":          {name: "data.unknownext", exp: "application/octet-stream"},
		"no extension":     {name: "README", exp: "application/octet-stream"},
		"nested directory": {name: "a/b/c.pdf", exp: model.MediaTypePDF},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, submit.ContentType(test.name))
		})
	}
}

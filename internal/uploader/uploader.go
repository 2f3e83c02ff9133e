// Package uploader has the capability that transfers a file to the contracts
// backend and reports its eventual outcome.
package uploader

import (
	"context"

	"github.com/slok/cupload/internal/model"
)

// Uploader submits a file and blocks until the backend accepts or rejects it.
// A nil result without error is handled as a failed upload.
type Uploader interface {
	Upload(ctx context.Context, f model.File) (*model.UploadResult, error)
}

//go:generate mockery --case underscore --output uploadermock --outpkg uploadermock --name Uploader --structname MockUploader

package model

import (
	"fmt"
	"strings"
)

// Media types accepted by default, matching what the contracts backend can parse.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeText = "text/plain"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DefaultMaxSizeBytes is the default upload size limit (10 MiB).
const DefaultMaxSizeBytes int64 = 10 * 1024 * 1024

// ValidationPolicy decides which files are allowed to become upload tasks.
type ValidationPolicy struct {
	AcceptedTypes []string
	MaxSizeBytes  int64
}

// DefaultValidationPolicy returns the policy used when none is configured.
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{
		AcceptedTypes: []string{MediaTypePDF, MediaTypeText, MediaTypeDOCX},
		MaxSizeBytes:  DefaultMaxSizeBytes,
	}
}

// Validate checks the policy itself is usable.
func (p ValidationPolicy) Validate() error {
	if len(p.AcceptedTypes) == 0 {
		return fmt.Errorf("at least one accepted type is required: %w", ErrNotValid)
	}
	for _, t := range p.AcceptedTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("accepted type can't be empty: %w", ErrNotValid)
		}
	}
	if p.MaxSizeBytes <= 0 {
		return fmt.Errorf("max size must be positive: %w", ErrNotValid)
	}
	return nil
}

// Check returns a rejection for the file, or nil if the file is accepted.
// Type is checked before size.
func (p ValidationPolicy) Check(f File) *Rejection {
	if !p.accepts(f.ContentType) {
		return &Rejection{
			File:   f,
			Reason: RejectionReasonUnsupportedType,
			Err:    fmt.Errorf("file %q has type %q: %w", f.Name, f.ContentType, ErrUnsupportedType),
		}
	}

	if f.Size > p.MaxSizeBytes {
		return &Rejection{
			File:   f,
			Reason: RejectionReasonTooLarge,
			Err:    fmt.Errorf("file %q is %d bytes, max is %d: %w", f.Name, f.Size, p.MaxSizeBytes, ErrTooLarge),
		}
	}

	return nil
}

func (p ValidationPolicy) accepts(contentType string) bool {
	// Ignore media type parameters (e.g. "text/plain; charset=utf-8").
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, t := range p.AcceptedTypes {
		if strings.ToLower(t) == mediaType {
			return true
		}
	}
	return false
}

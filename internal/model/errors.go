package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrUnsupportedType is returned when a file media type is not accepted by the validation policy.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrTooLarge is returned when a file exceeds the validation policy size limit.
	ErrTooLarge = errors.New("too large")
	// ErrStopped is returned when an operation is requested on a stopped orchestrator.
	ErrStopped = errors.New("orchestrator stopped")
)

package domain

import "errors"

// Sentinel errors shared across packages.
var (
	// ErrInvalidInput indicates a caller-supplied value failed validation.
	// Reported directly to the caller; the pipeline never runs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

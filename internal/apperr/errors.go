// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrNoReport is returned when no analysis run has completed yet.
	ErrNoReport = errors.New("no report available")
)

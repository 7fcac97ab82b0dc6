package store

import "errors"

var (
	// ErrNotFound is returned when a sweep does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidReport is returned when a report cannot be stored.
	ErrInvalidReport = errors.New("store: invalid report")
)

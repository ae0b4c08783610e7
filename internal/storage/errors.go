package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists in an insert-only store.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

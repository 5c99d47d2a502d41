package storage

import "errors"

// Verdict and snapshot rows are write-once: a verdict ID is derived from its
// inputs, so re-inserting one is always a caller bug.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a verdict_id is already stored.
	ErrDuplicateKey = errors.New("duplicate key: verdict already recorded")

	// ErrInvalidInput is returned for records that fail validation
	// (empty verdict ID, wrong feature count, nil entries).
	ErrInvalidInput = errors.New("invalid input")
)

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is returned when neither the configured path nor any
	// fallback location holds an artifact. Callers treat it as "run rule-based".
	ErrArtifactNotFound = errors.New("model artifact not found")

	// ErrInvalidArtifact is matched by every *ValidationError.
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// ValidationError describes a rejected artifact field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid model artifact: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidArtifact) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArtifact
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

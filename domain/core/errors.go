package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)

	// Input shape errors
	ErrEmptyMatrix      = errors.New("expression matrix is empty")
	ErrRaggedMatrix     = errors.New("expression matrix row length differs from sample count")
	ErrMissingSample    = errors.New("sample missing from expression matrix")
	ErrMissingColumn    = errors.New("required column missing")
	ErrNoSamples        = errors.New("no samples to assign")
	ErrEmptyGroup       = errors.New("group assignment has an empty group")
	ErrOverlapGroups    = errors.New("sample assigned to both groups")
	ErrUnassignedSample = errors.New("sample assigned to neither group")
	ErrUnknownVariant   = errors.New("unknown rule variant")

	// Knowledge errors
	ErrInvalidKnowledge = errors.New("invalid knowledge table")

	// Determinism errors
	ErrHashMismatch = errors.New("hash mismatch")
)

// NewNotFoundError wraps ErrNotFound with the resource and id.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError reports an invalid field.
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// NewMissingSampleError names the sample that the matrix lacks.
func NewMissingSampleError(sampleID string) error {
	return fmt.Errorf("%w: %s", ErrMissingSample, sampleID)
}

// NewMissingColumnError names the table and the column that was looked for.
func NewMissingColumnError(table, column string) error {
	return fmt.Errorf("%w: %s in %s", ErrMissingColumn, column, table)
}

// NewUnknownVariantError names the rejected variant.
func NewUnknownVariantError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputShapeError reports whether err describes malformed pipeline input.
func IsInputShapeError(err error) bool {
	return errors.Is(err, ErrEmptyMatrix) ||
		errors.Is(err, ErrRaggedMatrix) ||
		errors.Is(err, ErrMissingSample) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrNoSamples) ||
		errors.Is(err, ErrEmptyGroup) ||
		errors.Is(err, ErrOverlapGroups) ||
		errors.Is(err, ErrUnassignedSample)
}

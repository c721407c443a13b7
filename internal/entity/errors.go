package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateFeature is returned by createFeature when the name is taken.
	ErrDuplicateFeature = errors.New("feature already exists")

	// ErrUnknownFeature is returned by write/compute paths that require a
	// definite, registered target. Read paths report missing names instead.
	ErrUnknownFeature = errors.New("feature not registered")

	// ErrUnknownGroup is returned when a feature group was never created.
	ErrUnknownGroup = errors.New("feature group not found")

	// ErrDependencyCycle is returned at registration time when dependsOn
	// would close a cycle.
	ErrDependencyCycle = errors.New("feature dependency cycle")

	// ErrNotComputable is returned by computeFeature for STREAM/MANUAL
	// sources, whose values only arrive by push.
	ErrNotComputable = errors.New("feature source is not computable")
)

// ValidationError reports a write rejected by the feature's declared rules.
// The prior stored value, if any, is left untouched.
type ValidationError struct {
	Feature string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for feature %q: %s", e.Feature, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(feature, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Feature: feature, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

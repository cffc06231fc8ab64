package models

import "fmt"

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Pre-execution
	ErrPrecondition  ErrorType = "precondition_violation"
	ErrConfigInvalid ErrorType = "config_invalid"

	// Enumeration
	ErrEnumerationFailed ErrorType = "enumeration_failed"

	// Transform phase
	ErrTransformFailed     ErrorType = "transform_failed"
	ErrTransformGroupEmpty ErrorType = "transform_group_empty"

	// Network phase
	ErrUpsertFailed ErrorType = "upsert_failed"
	ErrUploadFailed ErrorType = "upload_failed"

	// Catch-all
	ErrInternalError ErrorType = "internal_error"
)

// PreconditionError reports invalid input detected before any work is
// scheduled.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Field, e.Reason)
}

// Precondition returns a *PreconditionError for field.
func Precondition(field, format string, args ...any) error {
	return &PreconditionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

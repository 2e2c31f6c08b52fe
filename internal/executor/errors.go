package executor

import (
	"errors"
	"fmt"
)

// ValidationError indicates bad order parameters. It fails fast and is never
// retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RetriesExhaustedError is surfaced to the caller after every retry attempt
// has failed. It wraps the final attempt's error.
type RetriesExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetriesExhausted reports whether err is (or wraps) a RetriesExhaustedError
func IsRetriesExhausted(err error) bool {
	var re *RetriesExhaustedError
	return errors.As(err, &re)
}

package services

import (
	"errors"
	"fmt"

	"news-verify/storage"
)

var (
	// ErrValidation marks caller-correctable input errors.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks references to entities that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrDependency marks store or classifier failures. Details are for logs only.
	ErrDependency = errors.New("dependency failure")
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PartialFailureError is returned when a news item was saved but could not be detected.
type PartialFailureError struct {
	NewsID string
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("news %s saved but detection failed: %v", e.NewsID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

func dependency(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}

// storeErr maps a storage error onto the service taxonomy.
func storeErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return dependency(op, err)
}

func isDependency(err error) bool {
	return errors.Is(err, ErrDependency)
}

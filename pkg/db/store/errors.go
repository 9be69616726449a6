package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// StoreError wraps failures of the underlying database
type StoreError struct {
	Inner error
}

func (e *StoreError) Error() string {
	return "store operation failed: " + e.Inner.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Inner
}

// NotFoundError represents an unknown file or tag
type NotFoundError struct {
	Search string
}

func (e *NotFoundError) Error() string {
	return "record not found: " + e.Search
}

// ConflictError represents a uniqueness violation such as a duplicate file path
type ConflictError struct {
	Conflict string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Conflict
}

// ValidationError is returned before any mutation when input is rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// wrapError maps gorm errors into the store taxonomy. Errors that already
// belong to it pass through unchanged so nested repository calls do not
// wrap twice.
func wrapError(err error, operation, details string) error {
	if err == nil {
		return nil
	}

	var (
		notFound   *NotFoundError
		conflict   *ConflictError
		validation *ValidationError
		storeErr   *StoreError
	)
	if errors.As(err, &notFound) || errors.As(err, &conflict) ||
		errors.As(err, &validation) || errors.As(err, &storeErr) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Search: fmt.Sprintf("%s (%s)", operation, details)}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &ConflictError{Conflict: fmt.Sprintf("%s (%s)", operation, details)}
	}

	return &StoreError{Inner: fmt.Errorf("%s (%s): %w", operation, details, err)}
}

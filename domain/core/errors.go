package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Schema errors
	ErrSchema         = errors.New("schema error")
	ErrColumnNotFound = fmt.Errorf("%w: column not found", ErrSchema)
	ErrDuplicateName  = fmt.Errorf("%w: duplicate column name", ErrSchema)
	ErrRaggedColumns  = fmt.Errorf("%w: columns differ in length", ErrSchema)

	// Input errors
	ErrEmptyInput   = errors.New("dataset has no rows")
	ErrInvalidInput = errors.New("invalid input")

	// Lookup errors
	ErrNotFound = errors.New("resource not found")
)

// Error constructors with context
func NewSchemaError(column string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
}

func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewNotFoundError(resource string, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, resource, name)
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsEmptyInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}

func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

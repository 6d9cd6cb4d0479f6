package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid_input")
	ErrClassificationNotFound = errors.New("classification_not_found")
	ErrTooManyScenarios       = errors.New("too_many_scenarios")
)

// ValidationError rejects a calculation input. It matches ErrInvalidInput
// with errors.Is.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// NotFoundError reports missing reference data for a calculation. Err is
// the underlying sentinel.
type NotFoundError struct {
	Err     error
	HS6     string
	Version string
	Origin  string
}

func (e *NotFoundError) Error() string {
	msg := e.Err.Error()
	if e.HS6 != "" {
		msg += " hs6=" + e.HS6
	}
	if e.Version != "" {
		msg += " version=" + e.Version
	}
	if e.Origin != "" {
		msg += " origin=" + e.Origin
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

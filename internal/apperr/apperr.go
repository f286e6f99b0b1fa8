// Package apperr defines the error taxonomy shared by services and controllers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced task/notification/user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the actor lacks rights for the requested mutation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is reserved for optimistic-concurrency use; not currently raised.
	ErrConflict = errors.New("conflict")
)

// NotFound wraps ErrNotFound with a short human-readable message.
func NotFound(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrNotFound)
}

// Forbidden wraps ErrForbidden with a short human-readable message.
func Forbidden(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrForbidden)
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input shape, detected before any store access.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed on %d fields", len(e.Fields))
}

// Validation builds a ValidationError for a single field.
func Validation(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// Message returns the text in front of the sentinel, for API responses.
func Message(err error) string {
	s := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrForbidden, ErrConflict} {
		suffix := ": " + sentinel.Error()
		if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
			return s[:len(s)-len(suffix)]
		}
	}
	return s
}

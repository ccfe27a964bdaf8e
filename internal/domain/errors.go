package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services, repositories and controllers.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidToken       = errors.New("invalid or inactive collector token")
	ErrVersionConflict    = errors.New("document was modified concurrently")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrValidation         = errors.New("validation failed")
	ErrBackend            = errors.New("backend failure")
)

// ErrInvalidTransition is returned when an RSVP status change is not pending -> confirmed|declined.
var ErrInvalidTransition = &ValidationError{Field: "rsvp_status", Message: "status can only move from pending to confirmed or declined"}

// ValidationError reports a missing or malformed field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BackendError wraps a transport or query failure from the document store,
// identity provider or change feed. It matches ErrBackend with errors.Is.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// WrapBackend wraps err as a BackendError unless it is nil or already one of the
// domain sentinels that callers branch on.
func WrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrBackend):
		return err
	}
	return &BackendError{Op: op, Err: err}
}

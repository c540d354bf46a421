package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrEmptyField     = errors.New("required field is empty")
	ErrInvalidOptions = errors.New("invalid generation options")
	ErrDuplicateID    = errors.New("id already exists")
	ErrUnauthorized   = errors.New("unauthorized")
)

// ValidationError wraps a sentinel with context. User-correctable.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// UpstreamError is any failure from the embedding, vector index, or
// generation providers. Op names the failed step.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for op. A nil err stays nil.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

// PersistenceError is a failed save after the response was already produced.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// Package apperr defines the error taxonomy shared across the engine.
//
// Three categories exist: adapter failures (subscription or write errors from
// the remote store), validation failures (rejected before any write), and auth
// failures (sign-in errors). None is fatal; all are recoverable by retrying
// the triggering action.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrScanInFlight      = errors.New("biometric scan already in flight")
	ErrModalityDisabled  = errors.New("biometric modality disabled")
)

// AdapterError wraps a failed remote-store operation. Op is the adapter call
// ("subscribe", "create", "update"), Collection the affected collection path.
type AdapterError struct {
	Op         string
	Collection string
	Err        error
}

func (e *AdapterError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("adapter %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("adapter %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// NewAdapterError builds an AdapterError for the given operation.
func NewAdapterError(op, collection string, err error) *AdapterError {
	return &AdapterError{Op: op, Collection: collection, Err: err}
}

// IsAdapter reports whether err is (or wraps) an AdapterError.
func IsAdapter(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}

// ValidationError reports a rejected input. Field names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AuthError reports a failed sign-in. Mode is "anonymous", "token", or
// "credentials". The session stays unauthenticated; no automatic retry.
type AuthError struct {
	Mode string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Mode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError for the given sign-in mode.
func NewAuthError(mode string, err error) *AuthError {
	return &AuthError{Mode: mode, Err: err}
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

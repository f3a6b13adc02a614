// Package apperrors defines the error taxonomy shared by the auth and resume
// services.
//
// Error Handling:
// Operations classify failures before returning them so handlers can map each
// class to an HTTP status without string matching. Errors should be wrapped
// with context using fmt.Errorf("%w") when returned from business logic.
//
// Example Usage:
//
//	if req.Email == "" {
//	    return nil, apperrors.NewValidation("email", "must not be empty")
//	}
//
//	if bcryptErr != nil {
//	    return nil, apperrors.NewAuth(apperrors.AuthInvalidCredentials, bcryptErr)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case apperrors.IsValidation(err):
//	    c.JSON(http.StatusBadRequest, ...)
//	case apperrors.IsAuthKind(err, apperrors.AuthInvalidCredentials):
//	    c.JSON(http.StatusUnauthorized, ...)
//	}
package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated indicates the operation requires a session that is
// absent. HTTP Status: 401 Unauthorized.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError reports malformed caller input, detected before any
// network or database call is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AuthKind classifies credential and session failures.
type AuthKind string

const (
	AuthInvalidCredentials AuthKind = "invalid-credentials"
	AuthUnverifiedEmail    AuthKind = "unverified-email"
	AuthAlreadyRegistered  AuthKind = "already-registered"
	AuthUnknown            AuthKind = "unknown"
)

// AuthError reports a credential or session failure with a machine-readable
// kind.
type AuthError struct {
	Kind AuthKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth error (%s)", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuth creates an AuthError of the given kind wrapping cause.
func NewAuth(kind AuthKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}

// IsAuthKind reports whether err is an AuthError of the given kind.
func IsAuthKind(err error, kind AuthKind) bool {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}

// BackendError reports a remote failure (database, object store, message
// broker) that does not match a more specific class. It carries the
// provider's diagnostic fields for logging.
type BackendError struct {
	Op   string // operation that failed, e.g. "storage.put"
	Code string // provider error code, if any
	Err  error
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error in %s (code %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("backend error in %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackend creates a BackendError for op wrapping cause.
func NewBackend(op, code string, cause error) *BackendError {
	return &BackendError{Op: op, Code: code, Err: cause}
}

// PartialFailureError reports a multi-step operation where an earlier step
// committed and a later step failed. The committed step is NOT rolled back;
// callers must surface the inconsistency.
type PartialFailureError struct {
	Committed string // step that succeeded and stays committed
	Failed    string // step that failed
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure: %s committed, %s failed: %v", e.Committed, e.Failed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// NewPartialFailure creates a PartialFailureError.
func NewPartialFailure(committed, failed string, cause error) *PartialFailureError {
	return &PartialFailureError{Committed: committed, Failed: failed, Err: cause}
}

// IsPartialFailure reports whether err is (or wraps) a PartialFailureError.
func IsPartialFailure(err error) bool {
	var pe *PartialFailureError
	return errors.As(err, &pe)
}

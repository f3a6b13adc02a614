package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("login: %w", NewValidation("email", "must not be empty"))

	if !IsValidation(err) {
		t.Error("Expected wrapped ValidationError to be detected")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("Plain error should not be a ValidationError")
	}
}

func TestAuthError_KindMatching(t *testing.T) {
	err := fmt.Errorf("authenticate: %w", NewAuth(AuthInvalidCredentials, errors.New("bcrypt mismatch")))

	if !IsAuthKind(err, AuthInvalidCredentials) {
		t.Error("Expected invalid-credentials kind to match")
	}
	if IsAuthKind(err, AuthUnverifiedEmail) {
		t.Error("Kind should not match a different AuthKind")
	}
	if IsAuthKind(errors.New("plain"), AuthInvalidCredentials) {
		t.Error("Plain error should not match any AuthKind")
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAuth(AuthUnknown, cause)

	if !errors.Is(err, cause) {
		t.Error("Expected AuthError to unwrap to its cause")
	}
}

func TestPartialFailureError_Fields(t *testing.T) {
	cause := errors.New("insert failed")
	err := NewPartialFailure("identity created", "profile insert", cause)

	if !IsPartialFailure(err) {
		t.Error("Expected PartialFailureError to be detected")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected PartialFailureError to unwrap to its cause")
	}

	var pe *PartialFailureError
	if !errors.As(err, &pe) {
		t.Fatal("errors.As should extract PartialFailureError")
	}
	if pe.Committed != "identity created" || pe.Failed != "profile insert" {
		t.Errorf("Unexpected step fields: committed=%q failed=%q", pe.Committed, pe.Failed)
	}
}

func TestBackendError_Message(t *testing.T) {
	err := NewBackend("storage.put", "AccessDenied", errors.New("403"))

	msg := err.Error()
	if msg == "" {
		t.Fatal("Expected non-empty error message")
	}
	var be *BackendError
	if !errors.As(fmt.Errorf("upload: %w", err), &be) {
		t.Error("errors.As should extract BackendError through wrapping")
	}
}

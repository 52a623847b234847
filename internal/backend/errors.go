package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailTaken is the sign-up failure the wizard branches on.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is a password mismatch on sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoSession marks calls that need an authenticated session.
	ErrNoSession = errors.New("no active session")

	// ErrNotFound is returned for single-row lookups with no match.
	ErrNotFound = errors.New("record not found")
)

// AuthError wraps an identity-provider failure with its wire code so
// callers can branch with errors.Is on the sentinels above.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrEmailTaken:
		return e.Code == "user_already_exists" || e.Code == "email_exists"
	case ErrInvalidCredentials:
		return e.Code == "invalid_credentials" || e.Code == "invalid_grant"
	}
	return false
}

// StoreError is a generic store failure carrying the table and HTTP status.
type StoreError struct {
	Table  string
	Op     string
	Status int
	Body   string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: status %d: %s", e.Op, e.Table, e.Status, e.Body)
}

// Package apperror defines the application's error taxonomy.
//
// Every layer below the handlers returns errors from this package (possibly
// wrapped with fmt.Errorf("context: %w", ...)). The handler layer is the ONLY
// place these are translated into HTTP status codes — services and clients
// stay protocol-agnostic.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers check for these with errors.Is, which walks the
// wrap chain, so they survive any amount of fmt.Errorf("%w") wrapping.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrNoCredential = errors.New("no credential") // no GitHub token resolvable from the request
	ErrAuth         = errors.New("authentication failed")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NoCredential indicates no GitHub token could be resolved from the request.
// HTTP handlers map this to 401 with action "authenticate".
func NoCredential() *AppError {
	return &AppError{
		Err:     ErrNoCredential,
		Message: "no GitHub token found",
	}
}

// AuthFailed indicates GitHub rejected the token we sent (expired, revoked,
// or never valid). HTTP handlers map this to 401 with action "reauthenticate" —
// the fix is a fresh OAuth login, not a retry.
func AuthFailed(message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
	}
}

// ProviderError is a non-2xx response from the GitHub API that isn't an
// authentication failure or a semantic "not found".
//
// It carries the ORIGINAL status code so the handler can pass meaningful
// statuses through (403 insufficient permissions, 422 invalid/duplicate name,
// 429 rate limited) and fall back to 500 for the rest. Body keeps the raw
// response for logs; Message is the parsed JSON "message" when GitHub sent
// one, or the raw body otherwise.
type ProviderError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("github: %d %s", e.StatusCode, e.Message)
}

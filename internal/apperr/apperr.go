// Package apperr defines the sentinel errors shared by the service layer.
// Services wrap these with fmt.Errorf("...: %w", ...) and handlers map them
// to HTTP statuses with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed or missing client input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so a caller cannot tell which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicate marks a unique-constraint violation.
	ErrDuplicate = errors.New("already exists")

	// ErrNotFound marks a missing user or an unknown location.
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks an upstream call that exceeded its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrUpstream marks any other upstream provider failure.
	ErrUpstream = errors.New("upstream failure")

	// ErrInvalidToken covers malformed, forged and expired session tokens
	// uniformly. The distinction is logged server-side, never surfaced.
	ErrInvalidToken = errors.New("invalid token")
)

// Package common defines shared constants and sentinel errors used across
// the layers of the chat server. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Membership errors.
	ErrorAlreadyMember = errors.New("already a member")
	ErrorNotMember     = errors.New("not a member")

	// Validation errors on user-supplied data.
	ErrorValidation = errors.New("validation error")

	// Fan-out local error: the subscriber connection is gone.
	ErrorConnClosed = errors.New("connection closed")
)

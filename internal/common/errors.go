// Package common defines shared constants and sentinel errors used across
// the server, its transports and the admin client. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (missing, invalid, malformed or expired token).
	ErrorAccessDenied = errors.New("access denied")
	ErrInvalidToken   = errors.New("invalid token")
)

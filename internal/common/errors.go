package common

import "errors"

// Callers should use errors.Is to match these values.
var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// ErrInvalidToken is returned for access tokens with a bad signature,
	// malformed structure, unexpected algorithm or elapsed expiry.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTooManyAttempts is returned when login throttling kicks in.
	ErrTooManyAttempts = errors.New("too many attempts")
)

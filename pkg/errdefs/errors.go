package errdefs

import "errors"

var (
	// ErrNotFound signals that the requested row or object doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter signals that the caller's input is invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConflict signals that the requested transition conflicts with the
	// current state of the record. A change in state may clear this error.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized signals that the caller failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden signals that the requested action is never allowed,
	// regardless of authentication. Callers should not retry.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable signals a transient failure of a backing store. The
	// whole operation may be retried.
	ErrUnavailable = errors.New("unavailable")

	// ErrTooLarge signals that a request body exceeded the configured limits.
	ErrTooLarge = errors.New("payload too large")

	// ErrAlreadyExists signals that the resource already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSystem signals an internal error.
	ErrSystem = errors.New("system error")
)

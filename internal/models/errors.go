package models

import "errors"

// Error kinds shared by the repositories and services. Callers classify with
// errors.Is; the concrete cause is carried in the wrapped message.
var (
	// ErrNotFound - a referenced client, technician, assignment or visit is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation - malformed input, e.g. a bad week date or unknown weekday.
	ErrValidation = errors.New("validation failed")

	// ErrConflict - a duplicate natural key on insert.
	ErrConflict = errors.New("conflict")

	// ErrExternalService - an invoicing or notification call failed. Never fatal
	// to the local operation that triggered it.
	ErrExternalService = errors.New("external service failure")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

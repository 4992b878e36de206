package storage

import "errors"

// Common storage errors
var (
	// ErrNotFound indicates that the referenced account, scope, role or client does not exist
	ErrNotFound = errors.New("entry not found")

	// ErrDuplicateEntry indicates a unique constraint violation
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrTokenNotFound indicates that a token row was already gone when deleting it
	ErrTokenNotFound = errors.New("token not found")

	// ErrUnavailable indicates that the database did not answer within the configured timeout
	ErrUnavailable = errors.New("storage temporarily unavailable")
)

package identity

import (
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Error codes of identity management operations.
const (
	CodeInvalidRequest         = "invalid_request"
	CodeNotFound               = "NOT_FOUND"
	CodeDuplicateEntry         = "DUPLICATE_ENTRY"
	CodeScopeDeadlock          = "SCOPE_DEADLOCK"
	CodeAdminDeadlock          = "ADMIN_DEADLOCK"
	CodeIdentityConfirmation   = "IDENTITY_CONFIRMATION_FAILURE"
	CodeTemporarilyUnavailable = "temporarily_unavailable"
)

// Error is a failure of an identity operation carrying a short code.
type Error struct {
	Err         error
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts *Error from the chain.
func AsError(err error) (*Error, bool) {
	var identityErr *Error
	if errors.As(err, &identityErr) {
		return identityErr, true
	}
	return nil, false
}

func invalidRequest(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidRequest, Description: fmt.Sprintf(format, args...)}
}

// storageError maps storage sentinels to coded errors, other errors are wrapped as internal.
func storageError(what string, err error) error {
	if _, ok := AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Code: CodeNotFound, Description: what + " does not exist", Err: err}
	case errors.Is(err, storage.ErrDuplicateEntry):
		return &Error{Code: CodeDuplicateEntry, Description: what + " already exists", Err: err}
	case errors.Is(err, storage.ErrUnavailable):
		return &Error{Code: CodeTemporarilyUnavailable, Description: "database did not respond in time", Err: err}
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

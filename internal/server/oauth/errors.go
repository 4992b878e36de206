package oauth

import (
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Short error codes shared by every transport.
const (
	CodeInvalidRequest         = "invalid_request"
	CodeInvalidGrant           = "invalid_grant"
	CodeInvalidScope           = "invalid_scope"
	CodeInvalidToken           = "invalid_token"
	CodeInsufficientScope      = "insufficient_scope"
	CodeUnsupportedGrantType   = "unsupported_grant_type"
	CodeAccessDenied           = "access_denied"
	CodeTemporarilyUnavailable = "temporarily_unavailable"
)

// Error is a protocol level failure of a token operation.
// Transports translate Code into their own status representation.
type Error struct {
	Err           error
	Code          string
	Description   string
	MissingScopes []string // only for insufficient_scope and invalid_scope
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
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr, true
	}
	return nil, false
}

func newError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

func invalidGrant(description string) *Error {
	return newError(CodeInvalidGrant, description)
}

func invalidToken(description string) *Error {
	return newError(CodeInvalidToken, description)
}

// storageError keeps timeouts distinguishable, everything else stays an internal error.
func storageError(op string, err error) error {
	if errors.Is(err, storage.ErrUnavailable) {
		return &Error{Code: CodeTemporarilyUnavailable, Description: "database did not respond in time", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Package messaging serves the asynchronous administrative interface.
//
// A Request arrives through a Transport encoded as JSON or CBOR, is
// authenticated by client credentials, executed against the token and
// scope services and answered with a Response carrying the same
// correlation id. Types carry json tags only; the CBOR codec reads them
// as well, so both encodings share field names.
package messaging

import "github.com/wisdom-oss/authorization-service/pkg/api"

// Actions understood by the executor.
const (
	ActionValidateToken = "validate_token"
	ActionRevokeToken   = "revoke_token"
	ActionAddScope      = "add_scope"
	ActionEditScope     = "edit_scope"
	ActionDeleteScope   = "delete_scope"
	ActionCheckScope    = "check_scope"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes specific to the bus. Core errors keep their own codes.
const (
	CodeInvalidClient = "invalid_client"
	CodeServerError   = "server_error"
)

// Request is one inbound message.
type Request struct {
	CorrelationID string  `json:"correlation_id"`
	ClientID      string  `json:"client_id"`
	ClientSecret  string  `json:"client_secret"`
	Payload       Payload `json:"payload"`
}

// Payload is discriminated by Action. Fields not used by an action are ignored.
type Payload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Value       *string `json:"value,omitempty"`
	Action      string  `json:"action"`
	Token       string  `json:"token,omitempty"`
	// Scopes is the space separated scope filter of validate_token
	Scopes string `json:"scopes,omitempty"`
	// Scope references an existing scope by id or value
	Scope string `json:"scope,omitempty"`
}

// Response answers a Request.
type Response struct {
	Token         *api.IntrospectionResponse `json:"token,omitempty"`
	Scope         *api.ScopeResponse         `json:"scope,omitempty"`
	CorrelationID string                     `json:"correlation_id"`
	Status        string                     `json:"status"`
	Error         string                     `json:"error,omitempty"`
	Description   string                     `json:"error_description,omitempty"`
	// Reason explains an inactive validate_token result, e.g. insufficient_scope
	Reason string `json:"reason,omitempty"`
}

func errorResponse(correlationID, code, description string) Response {
	return Response{CorrelationID: correlationID, Status: StatusError, Error: code, Description: description}
}

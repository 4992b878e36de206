package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/pkg/api"
)

// CodeServerError is sent for every error without a short code.
const CodeServerError = "server_error"

// ErrorStatus maps a core error to its HTTP status, short code and description.
// insufficientStatus is the status used for insufficient_scope.
func ErrorStatus(err error, insufficientStatus int) (int, string, string) {
	if oauthErr, ok := oauth.AsError(err); ok {
		return oauthStatus(oauthErr.Code, insufficientStatus), oauthErr.Code, oauthErr.Description
	}
	if identityErr, ok := identity.AsError(err); ok {
		return identityStatus(identityErr.Code), identityErr.Code, identityErr.Description
	}
	return http.StatusInternalServerError, CodeServerError, "internal server error"
}

func oauthStatus(code string, insufficientStatus int) int {
	switch code {
	case oauth.CodeInvalidToken:
		return http.StatusUnauthorized
	case oauth.CodeInsufficientScope:
		if insufficientStatus == 0 {
			return http.StatusForbidden
		}
		return insufficientStatus
	case oauth.CodeAccessDenied:
		return http.StatusForbidden
	case oauth.CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		// invalid_request, invalid_grant, invalid_scope, unsupported_grant_type
		return http.StatusBadRequest
	}
}

func identityStatus(code string) int {
	switch code {
	case identity.CodeNotFound:
		return http.StatusNotFound
	case identity.CodeDuplicateEntry:
		return http.StatusConflict
	case identity.CodeScopeDeadlock, identity.CodeAdminDeadlock:
		return http.StatusForbidden
	case identity.CodeIdentityConfirmation:
		return http.StatusUnauthorized
	case identity.CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// WriteError sends the error envelope.
// A 401 always carries a Bearer challenge; one set earlier by the caller is kept.
func WriteError(w http.ResponseWriter, statusCode int, code, description string) {
	if statusCode == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	sendJSON(w, api.ErrorResponse{Error: code, Description: description}, statusCode)
}

// writeServiceError logs and translates an error returned by the oauth or identity service.
func writeServiceError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	status, code, description := ErrorStatus(err, 0)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, op+" failed", slog.Any("error", err))
	} else {
		logger.DebugContext(ctx, op+" rejected", slog.String("code", code), slog.String("description", description))
	}
	WriteError(w, status, code, description)
}

func sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes the request body into dst and sends invalid_request on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "invalid request body")
		return false
	}
	return true
}

// pathID parses the numeric {id} path value.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// principal returns the authenticated caller placed into the context by the auth middleware.
func principal(w http.ResponseWriter, r *http.Request) (*oauth.Principal, bool) {
	p, ok := oauth.PrincipalFromContext(r.Context())
	if !ok || p == nil || p.Account == nil {
		WriteError(w, http.StatusUnauthorized, oauth.CodeInvalidToken, "request is not authenticated")
		return nil, false
	}
	return p, true
}

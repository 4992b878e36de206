package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/handlers"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
)

// Authorizer resolves a bearer token to a principal. Implemented by oauth.Service.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string, required models.ScopeSet) (*oauth.Principal, error)
}

// AuthConfig tunes the answers of AuthMiddleware.
type AuthConfig struct {
	// InsufficientScopeStatus is sent for insufficient_scope, 403 when zero
	InsufficientScopeStatus int
}

// AuthMiddleware создает middleware, пропускающий только bearer токены с нужными scope
// Principal кладется в контекст запроса (oauth.PrincipalFromContext)
func AuthMiddleware(logger *slog.Logger, authz Authorizer, cfg AuthConfig, scopes ...string) func(http.Handler) http.Handler {
	required := models.NewScopeSet(scopes...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			p, err := authz.Authorize(ctx, bearerToken(r), required)
			if err != nil {
				status, code, description := handlers.ErrorStatus(err, cfg.InsufficientScopeStatus)

				if oauthErr, ok := oauth.AsError(err); ok && status < http.StatusInternalServerError {
					w.Header().Set("WWW-Authenticate", challenge(oauthErr, required))
					logger.DebugContext(ctx, "request not authorized",
						slog.String("code", code),
						slog.String("path", r.URL.Path),
						slog.Any("missing_scopes", oauthErr.MissingScopes),
					)
				} else {
					logger.ErrorContext(ctx, "authorization failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				}

				handlers.WriteError(w, status, code, description)
				return
			}

			next.ServeHTTP(w, r.WithContext(oauth.ContextWithPrincipal(ctx, p)))
		})
	}
}

// bearerToken извлекает токен из "Authorization: Bearer <token>"
// Для отсутствующего или некорректного заголовка возвращает пустую строку
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func challenge(err *oauth.Error, required models.ScopeSet) string {
	value := fmt.Sprintf(`Bearer error=%q`, err.Code)
	if err.Code == oauth.CodeInsufficientScope && len(required) > 0 {
		value += fmt.Sprintf(`, scope=%q`, required.String())
	}
	return value
}

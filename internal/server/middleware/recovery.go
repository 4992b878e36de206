package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/wisdom-oss/authorization-service/internal/server/handlers"
)

// RecoveryMiddleware перехватывает panic, логирует стек и отвечает 500 server_error
// Детали паники клиенту не отдаются
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				handlers.WriteError(w, http.StatusInternalServerError, handlers.CodeServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

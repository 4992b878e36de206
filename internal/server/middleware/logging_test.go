package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		wantLevel string
		status    int
	}{
		{name: "2xx logs as info", status: http.StatusOK, wantLevel: "level=INFO"},
		{name: "4xx logs as warn", status: http.StatusNotFound, wantLevel: "level=WARN"},
		{name: "5xx logs as error", status: http.StatusServiceUnavailable, wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf strings.Builder
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("Hello, World!"))
			}))

			req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader("password=secret"))
			req.RemoteAddr = "10.0.0.1:5555"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			out := logBuf.String()
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, "method=POST")
			assert.Contains(t, out, "path=/oauth/token")
			assert.Contains(t, out, "remote_addr=10.0.0.1")
			assert.Contains(t, out, "bytes_written=13")
			assert.NotContains(t, out, "secret")
		})
	}
}

func TestLoggingMiddleware_ImplicitStatus(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/scopes", nil))

	assert.Contains(t, logBuf.String(), "status=200")
}

func TestLoggingMiddleware_SkipPaths(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	called := 0
	handler := LoggingMiddleware(logger, "/healthz", "/metrics")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	for _, path := range []string{"/healthz", "/metrics"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, 2, called)
	assert.Empty(t, logBuf.String())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Contains(t, logBuf.String(), "path=/users")
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := RequestIDMiddleware(LoggingMiddleware(logger)(http.NotFoundHandler()))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, logBuf.String(), "request_id=req-42")
}

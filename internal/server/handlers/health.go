package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks that a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает liveness и readiness проверки
type HealthHandler struct {
	logger  *slog.Logger
	db      Pinger
	version string
}

// NewHealthHandler создает handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{
		logger:  logger,
		db:      db,
		version: version,
	}
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health обрабатывает GET /healthz
// Процесс жив, зависимости не проверяются
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, HealthResponse{Status: "ok", Version: h.version}, http.StatusOK)
}

// Ready обрабатывает GET /readyz
// Отвечает 503 пока база данных недоступна
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "readiness check failed", slog.Any("error", err))
		sendJSON(w, HealthResponse{Status: "unavailable", Version: h.version}, http.StatusServiceUnavailable)
		return
	}

	sendJSON(w, HealthResponse{Status: "ready", Version: h.version}, http.StatusOK)
}

// Package server assembles the HTTP interface of the authorization service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/config"
	"github.com/wisdom-oss/authorization-service/internal/server/handlers"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/metrics"
	"github.com/wisdom-oss/authorization-service/internal/server/middleware"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators of Server.
type Deps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    storage.Store
	Tokens   *oauth.Service
	Identity *identity.Service
	Metrics  *metrics.Metrics // required, serves /metrics
	Version  string
}

// Server serves the HTTP API and sweeps expired tokens.
type Server struct {
	logger  *slog.Logger
	cfg     *config.Config
	store   storage.Store
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
	handler http.Handler
	now     func() time.Time
}

// New builds the router and middleware chain.
func New(d Deps) *Server {
	s := &Server{
		logger:  d.Logger,
		cfg:     d.Config,
		store:   d.Store,
		metrics: d.Metrics,
		limiter: middleware.NewRateLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst, d.Logger),
		now:     time.Now,
	}

	authHandler := handlers.NewAuthHandler(d.Logger, d.Tokens, d.Metrics)
	users := handlers.NewUserHandler(d.Logger, d.Identity)
	catalog := handlers.NewCatalogHandler(d.Logger, d.Identity)
	health := handlers.NewHealthHandler(d.Logger, d.Store, d.Version)

	authCfg := middleware.AuthConfig{InsufficientScopeStatus: d.Config.InsufficientScopeStatus}
	guard := func(h http.HandlerFunc, scopes ...string) http.Handler {
		return middleware.AuthMiddleware(d.Logger, d.Tokens, authCfg, scopes...)(h)
	}
	admin := func(h http.HandlerFunc) http.Handler { return guard(h, models.AdminScope) }
	self := func(h http.HandlerFunc) http.Handler { return guard(h, models.SelfScope) }

	mux := http.NewServeMux()

	mux.Handle("POST /oauth/token", s.limiter.Middleware(http.HandlerFunc(authHandler.Token)))
	mux.Handle("POST /oauth/check_token", guard(authHandler.CheckToken))
	mux.Handle("POST /oauth/revoke", self(authHandler.Revoke))

	mux.Handle("GET /users", admin(users.List))
	mux.Handle("POST /users", admin(users.Create))
	mux.Handle("GET /users/me", self(users.Me))
	mux.Handle("PATCH /users/me", self(users.ChangePassword))
	mux.Handle("GET /users/{id}", admin(users.Get))
	mux.Handle("PATCH /users/{id}", admin(users.Update))
	mux.Handle("DELETE /users/{id}", admin(users.Delete))
	mux.Handle("POST /users/{id}/enable", admin(users.Enable))
	mux.Handle("POST /users/{id}/disable", admin(users.Disable))

	mux.Handle("GET /scopes", self(catalog.ListScopes))
	mux.Handle("POST /scopes", admin(catalog.CreateScope))
	mux.Handle("GET /scopes/{id}", self(catalog.GetScope))
	mux.Handle("PUT /scopes/{id}", admin(catalog.UpdateScope))
	mux.Handle("PATCH /scopes/{id}", admin(catalog.UpdateScope))
	mux.Handle("DELETE /scopes/{id}", admin(catalog.DeleteScope))

	mux.Handle("GET /roles", admin(catalog.ListRoles))
	mux.Handle("POST /roles", admin(catalog.CreateRole))
	mux.Handle("GET /roles/{id}", admin(catalog.GetRole))
	mux.Handle("PUT /roles/{id}", admin(catalog.UpdateRole))
	mux.Handle("PATCH /roles/{id}", admin(catalog.UpdateRole))
	mux.Handle("DELETE /roles/{id}", admin(catalog.DeleteRole))

	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	var h http.Handler = d.Metrics.Instrument(mux)
	h = middleware.MaxBodyBytes(maxBodyBytes)(h)
	h = middleware.LoggingMiddleware(d.Logger, "/healthz", "/readyz", "/metrics")(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RequestIDMiddleware(h)
	h = middleware.RecoveryMiddleware(d.Logger)(h)
	s.handler = h

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepLoop(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

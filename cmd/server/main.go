package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/server"
	"github.com/wisdom-oss/authorization-service/internal/server/bootstrap"
	"github.com/wisdom-oss/authorization-service/internal/server/config"
	"github.com/wisdom-oss/authorization-service/internal/server/gateway"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/messaging"
	"github.com/wisdom-oss/authorization-service/internal/server/metrics"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/internal/server/storage/sqlstore"
	"github.com/wisdom-oss/authorization-service/internal/server/telemetry"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := pflag.Bool("version", false, "Show version information")
	pflag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authorization service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to flush traces", slog.Any("error", err))
		}
	}()

	store, err := sqlstore.New(ctx, sqlstore.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Timeout: cfg.DBTimeout})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	hasher, err := crypto.NewHasher(crypto.AlgorithmArgon2id, crypto.DefaultArgon2Params, 0)
	if err != nil {
		return err
	}

	m := metrics.New()

	var notifier interface {
		oauth.Notifier
		identity.Notifier
	} = gateway.Nop{}
	if cfg.GatewayURL != "" {
		dispatcher := gateway.NewDispatcher(logger, gateway.NewHTTPSender(cfg.GatewayURL, 0), cfg.GatewayQueue, m)
		dispatcher.Start()
		defer dispatcher.Close()
		notifier = dispatcher
		logger.Info("gateway notifications enabled", slog.String("url", cfg.GatewayURL))
	}

	tokens := oauth.NewService(logger, store, hasher,
		oauth.WithAccessTTL(cfg.AccessTokenTTL),
		oauth.WithRefreshTTL(cfg.RefreshTokenTTL),
		oauth.WithNotifier(notifier),
		oauth.WithTracer(telemetry.Tracer()),
	)
	ident := identity.NewService(logger, store, hasher, notifier)

	seed, err := bootstrap.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	if err := bootstrap.New(logger, store, ident, hasher).Run(ctx, seed); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	codecs, err := messaging.NewCodecs()
	if err != nil {
		return err
	}
	transport := messaging.NewChannelTransport(cfg.BusWorkers)
	defer func() {
		_ = transport.Close()
	}()
	executor := messaging.NewExecutor(logger, store, hasher, tokens, ident, m)
	bus := messaging.NewServer(logger, transport, executor, codecs, cfg.BusWorkers)

	busDone := make(chan error, 1)
	go func() {
		busDone <- bus.Run(ctx)
	}()

	httpServer := server.New(server.Deps{
		Logger:   logger,
		Config:   cfg,
		Store:    store,
		Tokens:   tokens,
		Identity: ident,
		Metrics:  m,
		Version:  Version,
	})

	logger.Info("authorization service starting",
		slog.String("version", Version),
		slog.String("addr", cfg.HTTPAddr),
		slog.String("db_driver", cfg.DBDriver),
	)
	httpErr := httpServer.Run(ctx)

	// HTTP сервер мог завершиться сам, шину останавливаем явно
	stop()
	busErr := <-busDone

	return errors.Join(httpErr, busErr)
}

func printVersion() {
	fmt.Printf("Authorization Service\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

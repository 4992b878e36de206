package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/wisdom-oss/authorization-service/internal/client/api"
	"github.com/wisdom-oss/authorization-service/internal/client/auth"
	"github.com/wisdom-oss/authorization-service/internal/client/cli"
	"github.com/wisdom-oss/authorization-service/internal/client/iocli"
	"github.com/wisdom-oss/authorization-service/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги, команда и ее аргументы идут после них
	flags := pflag.NewFlagSet("authctl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	showVersion := flags.Bool("version", false, "Show version information")
	serverURL := flags.String("server", "http://localhost:8080", "Authorization service URL")
	dbPath := flags.String("db", "authctl.db", "Path to the local session database")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*serverURL, *dbPath, flags.Args()); err != nil {
		if !errors.Is(err, cli.ErrUsage) || len(flags.Args()) > 0 {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(serverURL, dbPath string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close database: %v\n", closeErr)
		}
	}()

	apiClient := api.NewClient(serverURL)
	app := cli.New(iocli.NewStdio(), apiClient, auth.NewService(apiClient, sessions))
	return app.Run(ctx, args)
}

func printVersion() {
	fmt.Printf("authctl\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mcoot/bullscows/internal/api"
	"github.com/mcoot/bullscows/internal/factory"
)

func main() {
	// Optional .env file; real environment variables take precedence
	if err := factory.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	env, err := factory.ConfigFromEnv(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.LogLevel,
	}))
	slog.SetDefault(logger)

	env.App.Logger = logger

	ctx := context.Background()

	// Unreachable backends are fatal
	app, err := factory.New(ctx, env.App)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	// No connection survives a restart, so nobody is online yet
	if err := app.ResetPresence(ctx); err != nil {
		logger.Error("failed to reset presence", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var originPatterns []string
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		originPatterns = strings.Split(v, ",")
	}

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = env.Port
	server := api.NewServer(app.Handler(originPatterns), serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", storageName(env.App.StorageType)),
		slog.String("accounts", storageName(env.App.AccountStore)),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			app.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

func storageName(kind string) string {
	if kind == "" {
		return "memory"
	}
	return kind
}

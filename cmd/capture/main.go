package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fakewire/fakewire/internal/capture"
	"github.com/fakewire/fakewire/internal/config"
	"github.com/fakewire/fakewire/internal/logging"
	"github.com/fakewire/fakewire/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	store, err := buildStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create capture store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("closing capture store failed", "error", err)
		}
	}()

	captureService := capture.NewService(store, logger, capture.Options{
		MaxBodyBytes:        cfg.Capture.MaxBodyBytes,
		MaxRequestsPerInbox: cfg.Capture.MaxRequestsPerBox,
		AutoCreateInbox:     cfg.Capture.AutoCreateInbox,
	})
	apiHandlers := server.NewAPIHandlers(logger, captureService)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.StoreHealthService{Store: store},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildStore(ctx context.Context, logger *slog.Logger, cfg config.Config) (capture.Store, error) {
	if cfg.Capture.PostgresDSN == "" {
		logger.Info("no CAPTURE_POSTGRES_DSN set, using in-memory store")
		return capture.NewMemoryStore(), nil
	}

	store, err := capture.NewPostgresStore(ctx, cfg.Capture.PostgresDSN)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres capture store")
	return store, nil
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/practicehub/sheet-engine/internal/api"
	"github.com/practicehub/sheet-engine/internal/config"
	"github.com/practicehub/sheet-engine/internal/hierarchy"
	"github.com/practicehub/sheet-engine/internal/ingest"
	"github.com/practicehub/sheet-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting sheet-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Storage.Backend,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize the snapshot store
	snapshots, err := newSnapshotStore(initCtx, cfg)
	if err != nil {
		slog.Error("failed to create snapshot store", "error", err)
		os.Exit(1)
	}
	slog.Info("snapshot store ready", "backend", cfg.Storage.Backend)

	// Pick the ingestion source
	var source ingest.Source
	if cfg.Source.SeedFile != "" {
		slog.Info("using seed file source", "path", cfg.Source.SeedFile)
		source = ingest.NewSeedLoader(cfg.Source.SeedFile)
	} else {
		slog.Info("using remote source", "url", cfg.Source.URL)
		source = ingest.NewFetcher(cfg.Source.URL, cfg.Source.Timeout)
	}

	// Initialize the hierarchy store
	events := api.NewEventHub()
	store := hierarchy.New(snapshots, source, hierarchy.WithObserver(events.Publish))

	// Bootstrap: prior snapshot, else ingest. A failed ingest leaves
	// the error state visible; the consumer retries via the API.
	if err := store.Load(initCtx); err != nil {
		slog.Error("bootstrap failed, serving with error state", "error", err)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, cfg.Auth, store, snapshots, events)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := snapshots.Close(); err != nil {
		slog.Error("snapshot store close error", "error", err)
	}

	slog.Info("sheet-engine stopped")
}

// newSnapshotStore builds the configured snapshot backend
func newSnapshotStore(ctx context.Context, cfg *config.Config) (storage.SnapshotStore, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return storage.NewRedisStore(ctx, storage.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Storage.SnapshotKey,
		})
	case "postgres":
		return storage.NewPostgresStore(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			Key:          cfg.Storage.SnapshotKey,
		})
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

// CropAdvisor - Crop recommendations and cultivation calendars for smallholder farms.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/api"
	"github.com/opensource-finance/cropadvisor/internal/bus"
	"github.com/opensource-finance/cropadvisor/internal/cache"
	"github.com/opensource-finance/cropadvisor/internal/calendar"
	"github.com/opensource-finance/cropadvisor/internal/catalog"
	"github.com/opensource-finance/cropadvisor/internal/config"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/repository"
	"github.com/opensource-finance/cropadvisor/internal/rules"
	"github.com/opensource-finance/cropadvisor/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting cropadvisor",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"catalog", cfg.Catalog.Source,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"tracing", cfg.Tracing.Enabled,
	)

	if !cfg.Tracing.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize catalog source
	source, store, err := openCatalog(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize catalog", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	cached := catalog.NewCachedSource(source, cacheImpl, cfg.Catalog.CacheTTL)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Catalog watcher keeps every node's cache in step with catalog edits
	watcher := worker.NewWorker(busImpl, cached)
	if err := watcher.Start(); err != nil {
		slog.Error("failed to start catalog watcher", "error", err)
		os.Exit(1)
	}

	// Initialize Rule Engine
	engine, err := rules.NewEngine(cfg.Scoring)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized",
		"inclusion", cfg.Scoring.InclusionExpression,
		"max_results", cfg.Scoring.MaxResults,
	)

	// Fail fast on a broken catalog
	crops, err := cached.ListCrops(ctx)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "crops", len(crops))

	adv := advisor.New(cached, engine, calendar.NewGenerator())

	// Initialize Server
	deps := api.Dependencies{
		Advisor:     adv,
		Catalog:     cached,
		Cache:       cacheImpl,
		Bus:         busImpl,
		Invalidator: cached,
	}
	if store != nil {
		deps.Store = store
	}
	srv := api.NewServer(cfg.Server, deps, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("cropadvisor is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the watcher first so no invalidation races the shutdown
	if err := watcher.Stop(); err != nil {
		slog.Error("failed to stop catalog watcher", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("cropadvisor shutdown complete")
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// openCatalog returns the configured catalog source. For the database
// source it also returns the store, seeded from the seed file when empty.
func openCatalog(ctx context.Context, cfg *domain.Config) (domain.Catalog, *repository.SQLRepository, error) {
	if cfg.Catalog.Source == "file" {
		slog.Info("catalog source initialized", "source", "file", "path", cfg.Catalog.Path)
		return catalog.NewFileSource(cfg.Catalog.Path), nil, nil
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: %w", err)
	}
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	if cfg.Catalog.SeedPath != "" {
		n, err := catalog.SeedIfEmpty(ctx, repo, catalog.NewFileSource(cfg.Catalog.SeedPath))
		if err != nil {
			repo.Close()
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
		if n > 0 {
			slog.Info("catalog seeded", "path", cfg.Catalog.SeedPath, "crops", n)
		}
	}

	count, err := repo.CountCrops(ctx)
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("count crops: %w", err)
	}
	if count == 0 {
		slog.Warn("catalog is empty - add crops via POST /catalog")
	}

	return repo, repo, nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |               CROPADVISOR                 |")
	fmt.Println("  |   Crop recommendations for every field.   |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Catalog:  %s\n", cfg.Catalog.Source)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /recommend              - Recommend crops for a field")
	fmt.Println("    GET    /crops                  - List crop names")
	fmt.Println("    GET    /crops/{name}/calendar  - Cultivation calendar for a crop")
	fmt.Println("    GET    /catalog                - List catalog records")
	fmt.Println("    GET    /catalog/{name}         - Get a catalog record")
	fmt.Println("    POST   /catalog                - Create or replace a crop")
	fmt.Println("    DELETE /catalog/{name}         - Delete a crop")
	fmt.Println("    POST   /catalog/reload         - Drop the cached catalog")
	fmt.Println("    GET    /health                 - Health check")
	fmt.Println("    GET    /metrics                - Prometheus metrics")
	fmt.Println()
}

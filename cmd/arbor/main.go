// Package main is the entry point for the arbor taxonomy server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/database"
	"arbor/internal/handlers"
	"arbor/internal/router"
	"arbor/internal/store"
	"arbor/internal/tree"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"max_depth", cfg.MaxDepth,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for cached tree listings. The server runs without
	// it, just slower.
	var treeCache *cache.TreeCache
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, tree cache disabled", "error", err)
	} else {
		defer valkeyClient.Close()
		treeCache = cache.NewTreeCache(valkeyClient, cfg.TreeCacheTTL)
	}

	// Initialize data stores.
	nodeStore := store.NewNodeStore(db)
	itemStore := store.NewContentItemStore(db)
	revisionStore := store.NewItemRevisionStore(db)
	templateStore := store.NewTemplateStore(db)
	collectionStore := store.NewCollectionStore(db)
	bindingStore := store.NewBindingStore(db)
	auditStore := store.NewAuditStore(db)

	// The tree service owns every structural mutation; the query service
	// owns reads that must verify path integrity.
	svc := tree.NewService(db, nodeStore, templateStore, collectionStore, bindingStore, auditStore, cfg.MaxDepth)
	query := tree.NewQueryService(db, nodeStore, itemStore)

	admin := handlers.NewAdmin(svc, query, nodeStore, itemStore, revisionStore, templateStore, collectionStore, bindingStore, auditStore, treeCache)

	r := router.New(admin)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

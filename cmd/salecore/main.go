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

	"github.com/jonboulle/clockwork"

	"github.com/tokenlaunch/salecore/internal/api"
	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/db"
	"github.com/tokenlaunch/salecore/internal/engine"
	"github.com/tokenlaunch/salecore/internal/logging"
	"github.com/tokenlaunch/salecore/internal/sale"
	"github.com/tokenlaunch/salecore/internal/transfer"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging.
	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	slog.Info("salecore starting",
		"version", api.Version,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"saleFile", cfg.SaleFile,
		"payoutNetwork", cfg.PayoutNetwork,
		"custodyProviders", len(cfg.CustodyURLs),
	)

	// Load the sale definition.
	saleCfg, catalog, err := sale.LoadConfig(cfg.SaleFile)
	if err != nil {
		slog.Error("failed to load sale configuration", "error", err)
		os.Exit(1)
	}

	// Open database and run migrations.
	store, err := db.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.RunMigrations(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// Custody client: moves tokens on behalf of the engine.
	mover := transfer.NewCustodyClient(
		&http.Client{Timeout: cfg.CustodyTimeout},
		cfg.CustodyURLs,
		cfg.CustodyRPS,
	)

	// Build the engine. This also rolls back settlements interrupted by the
	// previous shutdown, so it must complete before the API comes up.
	eng, err := engine.New(saleCfg, catalog, store, mover, clockwork.NewRealClock(), cfg.PayoutNetwork, cfg.CustodyHolder)
	if err != nil {
		slog.Error("failed to initialize engine", "error", err)
		os.Exit(1)
	}

	slog.Info("sale ready",
		"status", eng.Status(),
		"start", time.Unix(saleCfg.StartDate, 0).UTC().Format(time.RFC3339),
		"end", time.Unix(saleCfg.EndDate, 0).UTC().Format(time.RFC3339),
	)

	router := api.NewRouter(eng, cfg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    config.ServerReadTimeout,
		WriteTimeout:   config.ServerWriteTimeout,
		IdleTimeout:    config.ServerIdleTimeout,
		MaxHeaderBytes: config.ServerMaxHeaderBytes,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-done
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("salecore stopped")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/arivven/ddns-sync/internal/config"
	"github.com/arivven/ddns-sync/internal/logger"
	"github.com/arivven/ddns-sync/internal/metrics"
	"github.com/arivven/ddns-sync/internal/provider/cloudflare"
	"github.com/arivven/ddns-sync/internal/reconcile"
	"github.com/arivven/ddns-sync/internal/resolver"
	"github.com/arivven/ddns-sync/internal/state"
)

const defaultConfigPath = "config.yaml"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(configPath())
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	// Initialize metrics
	metrics := metrics.New(true)

	// Set up HTTP server for metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: mux,
	}

	// Start http server in background
	go func() {
		slog.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, err := state.New(cfg.StatePath, metrics)
	if err != nil {
		slog.Error("Failed to open sync history", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	if prev, err := history.LoadState(ctx); err != nil {
		slog.Warn("Failed to load sync history", "error", err)
	} else {
		for name, record := range prev.Records {
			slog.Info("Previously synced record", "name", name, "content", record.Content,
				"syncedAt", time.Unix(record.SyncedAt, 0).Format(time.RFC3339))
		}
	}

	ipResolver := resolver.NewWeb(cfg.Resolver.URL, metrics)

	cf, err := cloudflare.New(cfg.DNS, metrics)
	if err != nil {
		slog.Error("Failed to initialize DNS provider", "error", err)
		os.Exit(1)
	}

	engine := reconcile.NewEngine(cf, history, cfg, metrics)

	slog.Info("Starting ddns-sync service",
		"zone", cfg.DNS.ZoneID,
		"records", len(cfg.DNS.Records),
		"interval", cfg.SyncInterval,
		"dryRun", cfg.Reconcile.DryRun)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go runSyncLoop(ctx, wg, ipResolver, engine, metrics, cfg.SyncInterval)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutdown signal received")
	cancel()

	serverShutdownCtx, cancelServer := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelServer()
	if err := server.Shutdown(serverShutdownCtx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	// Wait for sync loop to finish
	wg.Wait()
	slog.Info("Service shutdown complete")
}

func configPath() string {
	if path := os.Getenv("DDNS_SYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// runSyncLoop runs one sync immediately, then one per tick. A failed sync is
// logged and the loop keeps going; only startup problems stop the process.
func runSyncLoop(ctx context.Context, wg *sync.WaitGroup, ipResolver resolver.Resolver, engine reconcile.Engine, metrics *metrics.Metrics, interval time.Duration) {
	defer wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := performSync(ctx, ipResolver, engine, metrics); err != nil {
			slog.Error("Sync operation failed", "error", err)
		}
		slog.Info("Next check scheduled", "at", time.Now().Add(interval).Format(time.RFC3339))

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			slog.Info("Stopping sync loop")
			return
		}
	}
}

func performSync(ctx context.Context, ipResolver resolver.Resolver, engine reconcile.Engine, metrics *metrics.Metrics) error {
	slog.Info("Starting sync operation")
	start := time.Now()
	defer func() {
		metrics.SetSyncDuration(time.Since(start))
	}()

	ip, err := ipResolver.Resolve(ctx)
	if err != nil {
		metrics.IncSyncRun(false)
		return fmt.Errorf("discover public ip: %w", err)
	}
	slog.Info("Discovered public IP", "ip", ip)

	results, err := engine.Reconcile(ctx, ip)
	if err != nil {
		metrics.IncSyncRun(false)
		return err
	}

	slog.Info("Sync completed",
		"updated", len(results.Updated),
		"upToDate", len(results.Skipped),
		"failed", len(results.Failures))
	metrics.IncSyncRun(true)

	return nil
}

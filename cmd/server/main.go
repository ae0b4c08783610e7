// Package main runs the unified tickpipe server:
// - Collector (continuous): websocket feeds, normalization, buffering
// - Pipeline (scheduled): drain → persist → resample → alerts
// - API (continuous): REST endpoints and Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tickpipe/internal/alert"
	"tickpipe/internal/api"
	"tickpipe/internal/collector"
	"tickpipe/internal/config"
	"tickpipe/internal/feed"
	"tickpipe/internal/pipeline"
	"tickpipe/internal/storage"
	chstore "tickpipe/internal/storage/clickhouse"
	"tickpipe/internal/storage/memory"
	"tickpipe/internal/storage/migrations"
	pgstore "tickpipe/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Flags override the environment.
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listen address")
	symbols := flag.String("symbols", strings.Join(cfg.Symbols, ","), "Comma-separated symbols to subscribe")
	backend := flag.String("storage-backend", cfg.StorageBackend, "Storage backend (memory or database)")
	noStart := flag.Bool("no-autostart", false, "Do not start the collector on boot")
	flag.Parse()

	cfg.HTTPAddr = *httpAddr
	cfg.StorageBackend = *backend
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	timeframes, err := cfg.ParsedTimeframes()
	if err != nil {
		logger.Fatalf("parse timeframes: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tickStore, ohlcStore, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	connConfig := feed.DefaultConnConfig()
	connConfig.Endpoint = cfg.FeedEndpoint

	col := collector.New(collector.Options{
		BufferCapacity: cfg.BufferCapacity,
		ConnConfig:     &connConfig,
		Logger:         log.New(os.Stdout, "[collector] ", log.LstdFlags),
	})

	alerts := alert.NewEngine(alert.Options{
		Logger: log.New(os.Stdout, "[alert] ", log.LstdFlags),
	})

	pipe := pipeline.New(pipeline.Options{
		Collector:  col,
		TickStore:  tickStore,
		OHLCStore:  ohlcStore,
		Alerts:     alerts,
		Timeframes: timeframes,
		Interval:   cfg.ResampleInterval,
		Window:     cfg.AnalyticsWindow,
		Logger:     log.New(os.Stdout, "[pipeline] ", log.LstdFlags),
	})
	pipe.Start()
	defer pipe.Stop()

	if !*noStart {
		symbolList := splitSymbols(*symbols)
		if err := col.Start(symbolList); err != nil {
			logger.Fatalf("start collector: %v", err)
		}
		logger.Printf("collecting %v", symbolList)
	}
	defer col.Stop()

	server := api.NewServer(api.Options{
		Collector:       col,
		TickStore:       tickStore,
		OHLCStore:       ohlcStore,
		Alerts:          alerts,
		AnalyticsWindow: cfg.AnalyticsWindow,
		Logger:          log.New(os.Stdout, "[api] ", log.LstdFlags),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}

	// Second signal forces immediate exit.
	go func() {
		sig := <-sigCh
		logger.Printf("received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}

	cancel()
	logger.Println("shutdown complete")
}

// createStores builds the configured storage backend. With the
// database backend, Postgres always holds bars; ticks move to
// ClickHouse when a DSN is configured.
func createStores(ctx context.Context, cfg *config.Config) (storage.TickStore, storage.OHLCStore, func(), error) {
	if cfg.StorageBackend == config.BackendMemory {
		return memory.NewTickStore(), memory.NewOHLCStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	if cfg.ClickhouseDSN == "" {
		cleanup := func() { pool.Close() }
		return pgstore.NewTickStore(pool), pgstore.NewOHLCStore(pool), cleanup, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return chstore.NewTickStore(chConn), pgstore.NewOHLCStore(pool), cleanup, nil
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

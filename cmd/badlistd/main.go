package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"

	"github.com/haukened/badlist/internal/badlist/common/clock"
	"github.com/haukened/badlist/internal/badlist/common/log"
	"github.com/haukened/badlist/internal/badlist/config"
	"github.com/haukened/badlist/internal/badlist/gateways/httpapi"
	"github.com/haukened/badlist/internal/badlist/gateways/media"
	"github.com/haukened/badlist/internal/badlist/gateways/matrix"
	"github.com/haukened/badlist/internal/badlist/repos/store"
	boltstore "github.com/haukened/badlist/internal/badlist/repos/store/bolt"
	"github.com/haukened/badlist/internal/badlist/repos/store/cached"
	"github.com/haukened/badlist/internal/badlist/repos/store/parsers"
	redisstore "github.com/haukened/badlist/internal/badlist/repos/store/redis"
	sqlstore "github.com/haukened/badlist/internal/badlist/repos/store/sql"
	"github.com/haukened/badlist/internal/badlist/services/checker"
)

const (
	version = "0.1.0-dev"
	appName = "badlistd"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds the assembled components of the screening service.
type Application struct {
	config *config.AppConfig
	store  store.BlocklistStore
	engine *checker.Engine
	server *http.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":          version,
		"env":              cfg.Env,
		"log_level":        cfg.LogLevel,
		"port":             cfg.Port,
		"store_backend":    cfg.StoreBackend,
		"refresh_interval": cfg.RefreshInterval().String(),
	}, "Starting badlistd")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "badlistd stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	st, err := buildStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build blocklist store: %w", err)
	}

	// A digest decision cache in front of any backend; repeated uploads
	// of the same content are common.
	st = cached.New(st, cfg.HashCacheSize, cfg.RefreshInterval())

	engine := checker.New(checker.Options{
		Store:           st,
		Clock:           clk,
		Logger:          logger,
		Metrics:         checker.NewCounterMetrics(),
		RefreshInterval: cfg.RefreshInterval(),
	})

	fetcher := media.NewFetcher(cfg.MediaBaseURL, cfg.FetchTimeout(), logger)
	screener := matrix.NewScreener(engine, fetcher, logger)
	api := httpapi.NewServer(screener, engine, st, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.FetchTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	return &Application{config: cfg, store: st, engine: engine, server: srv}, nil
}

// buildStore selects and configures the blocklist backend.
func buildStore(cfg *config.AppConfig, logger log.Logger) (store.BlocklistStore, error) {
	switch cfg.StoreBackend {
	case "sql":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		log.Info(map[string]any{
			"links_table":  cfg.LinksTable,
			"hashes_table": cfg.HashesTable,
		}, "Using sql blocklist store")
		return sqlstore.New(db, cfg.LinksTable, cfg.HashesTable), nil

	case "bolt":
		bs, err := boltstore.New(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		if err := seedBoltStore(bs, cfg, logger); err != nil {
			_ = bs.Close()
			return nil, err
		}
		log.Info(map[string]any{"path": cfg.BoltPath}, "Using bolt blocklist store")
		return bs, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		log.Info(map[string]any{"addr": cfg.RedisAddr}, "Using redis blocklist store")
		return redisstore.New(client), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// seedBoltStore imports optional newline-delimited seed files into the
// bolt backend at startup.
func seedBoltStore(bs *boltstore.Store, cfg *config.AppConfig, logger log.Logger) error {
	if cfg.LinksSeedFile != "" {
		links, err := parseSeedFile(cfg.LinksSeedFile, logger, parsers.ParseLinkList)
		if err != nil {
			return fmt.Errorf("links seed: %w", err)
		}
		if err := bs.ReplaceLinks(links); err != nil {
			return fmt.Errorf("import links: %w", err)
		}
		log.Info(map[string]any{"file": cfg.LinksSeedFile, "count": len(links)}, "Imported link seed file")
	}
	if cfg.HashesSeedFile != "" {
		hashes, err := parseSeedFile(cfg.HashesSeedFile, logger, parsers.ParseHashList)
		if err != nil {
			return fmt.Errorf("hashes seed: %w", err)
		}
		if err := bs.ReplaceHashes(hashes); err != nil {
			return fmt.Errorf("import hashes: %w", err)
		}
		log.Info(map[string]any{"file": cfg.HashesSeedFile, "count": len(hashes)}, "Imported hash seed file")
	}
	return nil
}

func parseSeedFile(path string, logger log.Logger, parse func(r io.Reader, l log.Logger) ([]string, error)) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f, logger)
}

// Run starts the refresh scheduler and HTTP server, blocking until ctx
// is cancelled.
func (app *Application) Run(ctx context.Context) error {
	go app.engine.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(map[string]any{"addr": app.server.Addr}, "Check API listening")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during server shutdown")
	}
	if err := app.store.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing blocklist store")
	}
	return nil
}

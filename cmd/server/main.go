// Package main runs the token risk classification service:
// - HTTP and WebSocket classification API
// - Verdict persistence (PostgreSQL + ClickHouse, or in-memory)
// - Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"token-risk-lab/internal/api"
	"token-risk-lab/internal/audit"
	"token-risk-lab/internal/classifier"
	"token-risk-lab/internal/config"
	"token-risk-lab/internal/model"
	"token-risk-lab/internal/observability"
	"token-risk-lab/internal/storage"
	chstore "token-risk-lab/internal/storage/clickhouse"
	"token-risk-lab/internal/storage/memory"
	"token-risk-lab/internal/storage/migrations"
	pgstore "token-risk-lab/internal/storage/postgres"
)

// verdictStores holds the persistence backends for the recorder.
type verdictStores struct {
	verdicts  storage.VerdictStore
	snapshots storage.FeatureSnapshotStore
}

func main() {
	configPath := flag.String("config", config.GetEnvOrDefault("RISK_CONFIG", ""), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := createStores(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	engine := classifier.New(classifier.Options{
		Loader: model.NewLoader(model.LoaderOptions{
			Path:          cfg.Model.Path,
			FallbackPaths: cfg.Model.FallbackPaths,
			Logger:        logger,
		}),
		DisableModel:    cfg.Model.Disabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		ReportRate:      cfg.Metrics.ReportRate,
		ReportBurst:     cfg.Metrics.ReportBurst,
		Logger:          logger,
	})
	defer engine.Close()

	if cfg.Model.EagerLoad {
		if err := engine.Init(ctx); err != nil {
			return fmt.Errorf("init classifier: %w", err)
		}
		logger.Info("classifier ready", zap.String("state", engine.State().String()))
	}

	recorder := audit.NewRecorder(stores.verdicts, stores.snapshots, audit.WithLogger(logger))
	apiServer := api.NewServer(engine, recorder, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	servers := []*http.Server{httpServer}
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	return nil
}

// createStores connects to PostgreSQL and ClickHouse and applies migrations,
// or returns in-memory stores.
func createStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*verdictStores, func(), error) {
	if cfg.UseMemory {
		logger.Info("using in-memory verdict storage")
		return &verdictStores{
			verdicts:  memory.NewVerdictStore(),
			snapshots: memory.NewFeatureSnapshotStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	logger.Info("using postgres and clickhouse verdict storage")
	stores := &verdictStores{
		verdicts:  pgstore.NewVerdictStore(pool),
		snapshots: chstore.NewFeatureSnapshotStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

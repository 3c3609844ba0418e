package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/export"
	"github.com/joseph-ayodele/invoice-reconciler/internal/match"
	"github.com/joseph-ayodele/invoice-reconciler/internal/normalize"
	"github.com/joseph-ayodele/invoice-reconciler/internal/pipeline"
	"github.com/joseph-ayodele/invoice-reconciler/internal/provider"
	"github.com/joseph-ayodele/invoice-reconciler/internal/ratelimit"
	"github.com/joseph-ayodele/invoice-reconciler/internal/repository"
	"github.com/joseph-ayodele/invoice-reconciler/internal/retry"
	"github.com/joseph-ayodele/invoice-reconciler/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	providers, err := provider.Build(cfg.Provider, logger)
	if err != nil {
		logger.Error("failed to build providers", "error", err)
		os.Exit(1)
	}

	governor := ratelimit.NewGovernor(cfg.Pipeline.MinCallInterval, logger)
	defer governor.Close()

	normalizer := normalize.NewNormalizer(
		cfg.Business.DefaultCurrency,
		cfg.Business.DefaultVATRate,
		logger,
	)
	analyzer := pipeline.NewAnalyzer(
		providers,
		governor,
		retry.NewController(logger),
		normalizer,
		cfg.Pipeline,
		logger,
	)

	handler := server.NewHandler(server.Deps{
		Store:    store,
		Analyzer: analyzer,
		Grouper:  match.NewGrouper(cfg.Pipeline.GroupThreshold, logger),
		Matcher:  match.NewMatcher(cfg.Pipeline.CatalogThreshold),
		Exporter: export.NewService(logger),
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.shutdown.signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server.shutdown.complete")
}

// openStore prefers PostgreSQL when DB_URL is set, otherwise falls back to a
// local SQLite database.
func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.Store, error) {
	if cfg.Database.DSN != "" {
		return repository.OpenPostgres(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
	}
	return repository.OpenSQLite(cfg.Database.SQLitePath, logger)
}

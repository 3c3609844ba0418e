package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/export"
	"github.com/joseph-ayodele/invoice-reconciler/internal/ingest"
	"github.com/joseph-ayodele/invoice-reconciler/internal/match"
	"github.com/joseph-ayodele/invoice-reconciler/internal/normalize"
	"github.com/joseph-ayodele/invoice-reconciler/internal/pipeline"
	"github.com/joseph-ayodele/invoice-reconciler/internal/provider"
	"github.com/joseph-ayodele/invoice-reconciler/internal/ratelimit"
	"github.com/joseph-ayodele/invoice-reconciler/internal/repository"
	"github.com/joseph-ayodele/invoice-reconciler/internal/retry"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir   = flag.String("dir", "", "directory to process invoices from (required)")
		out   = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		watch = flag.Bool("watch", false, "keep running and process files as they appear in --dir")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "invoices.xlsx")
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sqlitePath := cfg.Database.SQLitePath
	if *inmem {
		sqlitePath = ":memory:"
	}
	store, err := repository.OpenSQLite(sqlitePath, logger)
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

	normalizer := normalize.NewNormalizer(cfg.Business.DefaultCurrency, cfg.Business.DefaultVATRate, logger)
	analyzer := pipeline.NewAnalyzer(providers, governor, retry.NewController(logger), normalizer, cfg.Pipeline, logger)

	if *watch {
		if err := runWatch(ctx, *dir, store, analyzer, logger); err != nil {
			logger.Error("watch mode failed", "error", err)
			os.Exit(1)
		}
		return
	}

	docs, err := ingest.LoadDirectory(*dir)
	if err != nil {
		logger.Error("failed to read input directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		printError("Error: no supported invoice files found in %s\n", *dir)
		os.Exit(1)
	}
	logger.Info("batch.start", "dir", *dir, "files", len(docs))

	results := analyzer.AnalyzeBatch(ctx, docs)
	for i := range results {
		if results[i].Invoice == nil {
			continue
		}
		if err := store.SaveInvoice(ctx, results[i].Invoice); err != nil {
			logger.Error("failed to save invoice", "filename", results[i].Filename, "error", err)
		}
	}

	catalog, err := store.ListProducts(ctx)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	grouper := match.NewGrouper(cfg.Pipeline.GroupThreshold, logger)
	matcher := match.NewMatcher(cfg.Pipeline.CatalogThreshold)
	review := pipeline.BuildReview(results, grouper, matcher, catalog)

	data, err := export.NewService(logger).ExportReviewXLSX(review)
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}

	ok, failed := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			printError("FAILED %s: %v\n", res.Filename, res.Err)
		} else {
			ok++
		}
	}
	logger.Info("batch.done", "ok", ok, "failed", failed, "groups", len(review.Groups), "out", *out)
	fmt.Printf("Processed %d file(s): %d ok, %d failed. Workbook: %s\n", len(docs), ok, failed, *out)
	if failed > 0 {
		os.Exit(2)
	}
}

// runWatch processes invoices as they land in dir, saving each normalized
// invoice to the store. Runs until interrupted.
func runWatch(ctx context.Context, dir string, store *repository.Store, analyzer *pipeline.Analyzer, logger *slog.Logger) error {
	paths, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		return err
	}
	go func() {
		for werr := range watchErrs {
			logger.Warn("watcher error", "error", werr)
		}
	}()

	in := ingest.Documents(ctx, paths, logger)
	results := make(chan pipeline.DocumentResult)
	go analyzer.Run(ctx, in, results)

	logger.Info("watch.start", "dir", dir)
	for res := range results {
		if res.Err != nil {
			logger.Error("watch.document_failed", "filename", res.Filename, "error", res.Err)
			continue
		}
		if err := store.SaveInvoice(ctx, res.Invoice); err != nil {
			logger.Error("watch.save_failed", "filename", res.Filename, "error", err)
			continue
		}
		logger.Info("watch.document_ok", "filename", res.Filename, "invoice_id", res.Invoice.ID, "lines", len(res.Invoice.Lines))
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"idxval/internal/config"
	"idxval/internal/engine"
	"idxval/internal/exporter"
	"idxval/internal/infrastructure"
	"idxval/internal/resultstore"
	"idxval/internal/tabular"
	"idxval/internal/validation"
)

func main() {
	table := flag.String("table", "", "table to validate (default: all IDX tables)")
	file := flag.String("file", "", "validate sheets of an Excel workbook instead of database tables")
	symbol := flag.String("symbol", "", "restrict the run to one ticker symbol")
	from := flag.String("from", "", "start of the date range, YYYY-MM-DD")
	to := flag.String("to", "", "end of the date range, YYYY-MM-DD")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	// Tag the run with a trace ID so its log lines correlate like a request
	ctx, cancel := context.WithTimeout(infrastructure.EnsureTraceID(context.Background()), *timeout)
	defer cancel()

	q, err := buildQuery(*symbol, *from, *to)
	if err != nil {
		logger.Error("Invalid date filter", slog.String("error", err.Error()))
		os.Exit(2)
	}

	// Source: an explicit workbook wins over the configured source
	files := validation.NewFileValidator(logger)
	var source engine.Source
	var pool *pgxpool.Pool
	switch {
	case *file != "":
		if err := files.ValidateWorkbook(*file); err != nil {
			logger.Error("Invalid workbook", slog.String("error", err.Error()))
			os.Exit(2)
		}
		source = tabular.NewExcelSource(*file, logger)
	case cfg.Source.Kind == "excel":
		if err := files.ValidateWorkbook(cfg.Source.ExcelFile); err != nil {
			logger.Error("Invalid workbook", slog.String("error", err.Error()))
			os.Exit(2)
		}
		source = tabular.NewExcelSource(cfg.Source.ExcelFile, logger)
	default:
		if cfg.Database.URL == "" {
			logger.Error("No database URL configured; use -file to validate a workbook")
			os.Exit(2)
		}
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Error("Invalid database URL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		poolCfg.MaxConns = cfg.Database.MaxConns
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Error("Failed to open database pool", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		source = tabular.NewPostgresSource(pool, logger)
	}

	// Results go to the local store; with a database also to Postgres
	local, err := resultstore.NewLocalStore(cfg.Validation.ResultsDir, logger)
	if err != nil {
		logger.Error("Failed to create local result store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var store resultstore.Store = local
	if pool != nil {
		store = resultstore.NewFallbackStore(resultstore.NewPostgresStore(pool, logger), local, logger)
	}

	resolver := engine.NewResolver(store, logger)
	registry := engine.NewRegistry(engine.NewSiblingFetcher(source), nil)
	orch := engine.NewOrchestrator(source, store, resolver, registry, logger)
	orch.SetConcurrency(cfg.Validation.Concurrency)

	var results []*engine.Result
	if *table != "" {
		results = append(results, orch.Validate(ctx, *table, q))
	} else {
		tables := make([]string, 0, len(registry.Tables()))
		for _, info := range registry.Tables() {
			tables = append(tables, info.Name)
		}
		results = orch.ValidateAll(ctx, tables, q)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		logger.Error("Failed to write results", slog.String("error", err.Error()))
		os.Exit(1)
	}

	archiveRun(ctx, logger, cfg.Validation.ResultsDir, store, results)

	for _, res := range results {
		if res.Status == engine.StatusError {
			os.Exit(1)
		}
	}
}

// archiveRun writes CSV copies of the run's stored results and per-table
// findings under dir. Archiving is best effort and never fails the run.
func archiveRun(ctx context.Context, logger *slog.Logger, dir string, store resultstore.Store, results []*engine.Result) {
	fw := exporter.NewFileWriter(dir, logger)
	stamp := time.Now().UTC().Format("20060102_150405")

	stored, err := store.List(ctx, "", len(results))
	if err != nil {
		logger.Warn("Skipping results CSV archive", slog.String("error", err.Error()))
	} else if err := fw.ExportResults(fmt.Sprintf("validation_results_%s.csv", stamp), stored); err != nil {
		logger.Warn("Failed to archive results CSV", slog.String("error", err.Error()))
	}

	for _, res := range results {
		if res.FindingsCount == 0 {
			continue
		}
		name := fmt.Sprintf("validation_findings_%s_%s.csv", res.TableName, stamp)
		if err := fw.ExportFindings(name, res); err != nil {
			logger.Warn("Failed to archive findings CSV", slog.String("error", err.Error()))
		}
	}
}

func buildQuery(symbol, from, to string) (engine.Query, error) {
	q := engine.Query{Symbol: symbol}

	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return q, fmt.Errorf("parse -from: %w", err)
		}
		q.Start = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return q, fmt.Errorf("parse -to: %w", err)
		}
		q.End = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("-to precedes -from")
	}
	return q, nil
}

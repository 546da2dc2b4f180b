package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/app"
	"liquidityPool/internal/config"
	"liquidityPool/internal/report"
	"liquidityPool/internal/storage"
	"liquidityPool/internal/storage/postgres"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate the event journal into window metrics",
		RunE:  runReport,
	}
	cmd.Flags().String("source", config.SourceJournal, "event source (journal, postgres)")
	cmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	cmd.Flags().String("out", "./data/window_metrics.jsonl", "output JSONL path for the journal source")
	cmd.Flags().Int("batch-size", 1000, "windows per write")
	cmd.Flags().String("progress-file", "", "optional local file for progress tracking")
	cmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	cmd.Flags().StringSlice("pool", nil, "restrict to these pools (comma-separated)")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Config)
	if err != nil {
		return err
	}
	defer logger.Sync()

	windowSeconds, err := cfg.WindowSeconds()
	if err != nil {
		return err
	}
	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}
	pools, err := config.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		src        report.EventSource
		writer     report.MetricsWriter
		stateStore report.StateStore
	)
	switch cfg.Source {
	case config.SourcePostgres:
		store := a.Postgres()
		if store == nil {
			store, err = postgres.NewStore(ctx, cfg.PGDSN, postgres.Options{
				MaxRetries:   cfg.MaxRetries,
				RetryBackoff: cfg.RetryBackoff,
			})
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
		}
		src, writer = store, store
		if cfg.ProgressFile != "" {
			stateStore = &report.FileStateStore{Path: cfg.ProgressFile, WindowSeconds: windowSeconds}
		} else {
			stateStore = &report.DBStateStore{Store: store, Name: fmt.Sprintf("report:%d", windowSeconds)}
		}
	default:
		src = report.JournalSource{Path: cfg.Journal, Logger: logger}
		writer = storage.NewJsonlStorage(cfg.Out)
		progress := cfg.ProgressFile
		if progress == "" {
			progress = cfg.Out + ".progress.json"
		}
		stateStore = &report.FileStateStore{Path: progress, WindowSeconds: windowSeconds}
	}

	listed, err := a.Engine.Pools(ctx)
	if err != nil {
		return err
	}
	directory := report.NewPoolDirectory(listed, func(asset common.Address) (uint8, bool) {
		m, ok := a.Ledger.Mint(asset)
		return m.Decimals, ok
	})

	logger.Info("report start",
		zap.String("source", cfg.Source),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
		zap.Int("pools", len(pools)),
	)

	agg := report.NewAggregator(report.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
		Pools:         pools,
	}, writer, directory, logger)
	return agg.Run(ctx, src)
}

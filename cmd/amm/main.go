package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"liquidityPool/internal/app"
	"liquidityPool/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Two-asset constant-product liquidity pools",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("backend", config.BackendFile, "state backend (file, postgres)")
	pf.String("state-file", "./data/state.json", "snapshot file for the file backend")
	pf.String("journal", "./data/events.jsonl", "pool event journal JSONL path")
	pf.String("pg-dsn", "", "Postgres DSN")
	pf.String("snapshot-name", "default", "snapshot name for the postgres backend")
	pf.Int("max-retries", 5, "maximum postgres connect attempts")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.String("deposit-policy", "proportional", "deposit policy (proportional, strict)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "optional rotating log file")
	pf.Int("log-max-size-mb", 100, "log file size before rotation")
	pf.Int("log-max-backups", 3, "rotated log files to keep")

	root.AddCommand(
		newKeygenCmd(),
		newAssetCmd(),
		newApproveCmd(),
		newPoolCmd(),
		newSimulateCmd(),
		newReportCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevel()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}

	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.LogFile == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zcfg.EncoderConfig), rotating, zcfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

// withApp loads the configured world, runs fn against it and prints its
// result. When save is set the world is persisted after fn succeeds.
func withApp(cmd *cobra.Command, save bool, fn func(ctx context.Context, a *app.App) (any, error)) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(ctx, a)
	if err != nil {
		return err
	}
	if save {
		if err := a.Save(ctx); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	if v == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

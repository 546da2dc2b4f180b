package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/app"
	"liquidityPool/internal/config"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay the pool lifecycle scenario and concurrent trading",
		RunE:  runSimulate,
	}
	cmd.Flags().Int("pools", 1, "pools to create")
	cmd.Flags().Int("traders", 1, "concurrent traders")
	cmd.Flags().Int("swaps", 0, "swaps per trader after the scripted scenario")
	cmd.Flags().Uint64("fee-bps", 10, "swap fee of the created pools")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address until interrupted")
	cmd.Flags().Bool("persist", false, "run against the configured backend and save the result")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Config)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var a *app.App
	if cfg.Persist {
		a, err = app.Open(ctx, cfg.Config, logger)
		if err != nil {
			return err
		}
		defer a.Close()
	} else {
		policy, err := amm.ParseDepositPolicy(cfg.DepositPolicy)
		if err != nil {
			return err
		}
		a = app.NewEphemeral(policy, nil, logger)
	}

	var server *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	logger.Info("simulation start",
		zap.Int("pools", cfg.Pools),
		zap.Int("traders", cfg.Traders),
		zap.Int("swaps", cfg.Swaps),
		zap.Uint64("fee_bps", cfg.FeeBps),
		zap.Bool("persist", cfg.Persist),
	)
	report, err := a.Simulate(ctx, app.SimulationConfig{
		FeeBps:  cfg.FeeBps,
		Pools:   cfg.Pools,
		Traders: cfg.Traders,
		Swaps:   cfg.Swaps,
	})
	if err != nil {
		return err
	}
	if cfg.Persist {
		if err := a.Save(ctx); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if server != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return nil
}

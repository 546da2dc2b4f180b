// Package app assembles the ledger, stores and engine from configuration and
// persists their state between commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/config"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
	"liquidityPool/internal/storage/postgres"
)

// App is a loaded world: ledger, pools and the engine operating on them.
type App struct {
	Ledger   *ledger.Ledger
	Pools    *storage.MemoryPoolStore
	Engine   *amm.Engine
	Registry *prometheus.Registry

	snapshots storage.SnapshotStore
	pg        *postgres.Store
	logger    *zap.Logger
}

// Open loads the last snapshot of the configured backend and builds an engine
// over it. Committed events go to the JSONL journal and, with the postgres
// backend, to the events table.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, err := amm.ParseDepositPolicy(cfg.DepositPolicy)
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger}
	var sinks storage.MultiSink
	if cfg.Journal != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Journal))
	}

	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN, postgres.Options{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			SnapshotName: cfg.SnapshotName,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.pg = pg
		a.snapshots = pg
		sinks = append(sinks, pg)
	case config.BackendFile:
		a.snapshots = &storage.FileSnapshotStore{Path: cfg.StateFile}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	snap, found, err := a.snapshots.Load(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.restore(snap, found, policy, sinks); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Engine.RefreshMetrics(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("state loaded",
		zap.String("backend", cfg.Backend),
		zap.Bool("found", found),
		zap.Int("pools", len(snap.Pools)),
		zap.Int("accounts", len(snap.Accounts)),
		zap.String("saved_at", snap.SavedAt),
	)
	return a, nil
}

// NewEphemeral builds an empty world that is never persisted.
func NewEphemeral(policy amm.DepositPolicy, sink storage.EventSink, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}
	var sinks storage.MultiSink
	if sink != nil {
		sinks = append(sinks, sink)
	}
	// restoring an empty snapshot cannot fail
	_ = a.restore(model.Snapshot{}, false, policy, sinks)
	return a
}

func (a *App) restore(snap model.Snapshot, found bool, policy amm.DepositPolicy, sinks storage.MultiSink) error {
	l := ledger.New()
	nonces := amm.NewNonceTracker()
	if found {
		var err error
		l, err = ledger.Restore(snap.Mints, snap.Accounts)
		if err != nil {
			return fmt.Errorf("restore ledger: %w", err)
		}
		if err := nonces.Import(snap.Nonces); err != nil {
			return fmt.Errorf("restore nonces: %w", err)
		}
		for _, p := range snap.Pools {
			if err := amm.ValidatePool(p); err != nil {
				return fmt.Errorf("restore pool %s: %w", p.Address.Hex(), err)
			}
		}
	}

	a.Ledger = l
	a.Pools = storage.NewMemoryPoolStore(snap.Pools...)
	a.Registry = prometheus.NewRegistry()

	var sink storage.EventSink
	if len(sinks) > 0 {
		sink = sinks
	}
	a.Engine = amm.NewEngine(amm.Config{
		DepositPolicy: policy,
		Nonces:        nonces,
	}, l, a.Pools, sink, a.logger, amm.NewMetrics(a.Registry))
	return nil
}

// Snapshot exports the current world.
func (a *App) Snapshot(ctx context.Context) (model.Snapshot, error) {
	pools, err := a.Pools.ListPools(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	mints, accounts := a.Ledger.Export()
	return model.Snapshot{
		Mints:    mints,
		Accounts: accounts,
		Pools:    pools,
		Nonces:   a.Engine.Nonces().Export(),
		SavedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Save persists the current world to the backend it was loaded from.
func (a *App) Save(ctx context.Context) error {
	if a.snapshots == nil {
		return nil
	}
	snap, err := a.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := a.snapshots.Save(ctx, snap); err != nil {
		return err
	}
	a.logger.Debug("state saved", zap.Int("pools", len(snap.Pools)), zap.Int("accounts", len(snap.Accounts)))
	return nil
}

// Postgres returns the postgres store when that backend is in use.
func (a *App) Postgres() *postgres.Store {
	return a.pg
}

func (a *App) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
}

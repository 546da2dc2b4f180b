// Package report aggregates the pool event journal into windowed activity
// metrics.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

// EventSource streams journal events with a timestamp above after.
type EventSource interface {
	ReadEvents(ctx context.Context, after uint64, fn func(model.PoolEvent) error) error
}

// MetricsWriter receives finished windows.
type MetricsWriter interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// JournalSource reads events from a JSONL journal file.
type JournalSource struct {
	Path   string
	Logger *zap.Logger
}

func (j JournalSource) ReadEvents(ctx context.Context, after uint64, fn func(model.PoolEvent) error) error {
	logger := j.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return storage.ReadEvents(ctx, j.Path, func(ev model.PoolEvent) error {
		if ev.Timestamp <= after {
			return nil
		}
		return fn(ev)
	}, func(line int, err error) {
		logger.Warn("decode pool event", zap.Int("line", line), zap.Error(err))
	})
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// Pools restricts the report to these pools when non-empty.
	Pools []common.Address
}

// Aggregator folds pool events into per-pool window metrics.
type Aggregator struct {
	cfg          Config
	writer       MetricsWriter
	pools        *PoolDirectory
	logger       *zap.Logger
	only         map[common.Address]bool
	accumulators map[common.Address]*Accumulator
	processed    uint64
}

func NewAggregator(cfg Config, writer MetricsWriter, pools *PoolDirectory, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	var only map[common.Address]bool
	if len(cfg.Pools) > 0 {
		only = make(map[common.Address]bool, len(cfg.Pools))
		for _, p := range cfg.Pools {
			only[p] = true
		}
	}
	return &Aggregator{
		cfg:          cfg,
		writer:       writer,
		pools:        pools,
		logger:       logger,
		only:         only,
		accumulators: make(map[common.Address]*Accumulator),
	}
}

// Run aggregates every event of src newer than the saved progress.
func (a *Aggregator) Run(ctx context.Context, src EventSource) error {
	if a.writer == nil {
		return fmt.Errorf("metrics writer is nil")
	}
	if src == nil {
		return fmt.Errorf("event source is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}
	a.processed = startTs

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var total, windows, failed int

	err = src.ReadEvents(ctx, startTs, func(ev model.PoolEvent) error {
		if a.only != nil && !a.only[ev.Pool] {
			return nil
		}
		total++
		windowStart := windowStart(ev.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		acc := a.accumulators[ev.Pool]
		if acc == nil {
			acc = NewAccumulator(ev, windowStart, windowEnd)
			a.accumulators[ev.Pool] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, a.flushAccumulator(acc))
			windows++
			acc = NewAccumulator(ev, windowStart, windowEnd)
			a.accumulators[ev.Pool] = acc
		}

		if err := acc.AddEvent(ev); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", ev.Pool.Hex()), zap.String("event", ev.Kind))
			return nil
		}
		if ev.Timestamp > a.processed {
			a.processed = ev.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.writer.UpsertWindowMetrics(ctx, batch); err != nil {
				return fmt.Errorf("write window metrics: %w", err)
			}
			batch = batch[:0]
			return a.saveState(ctx)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(acc))
		windows++
	}
	a.accumulators = make(map[common.Address]*Accumulator)

	if len(batch) > 0 {
		if err := a.writer.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("write window metrics: %w", err)
		}
	}
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("report complete",
		zap.Int("events", total),
		zap.Int("windows", windows),
		zap.Int("failed", failed),
		zap.Uint64("processed_ts", a.processed),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records progress up to the oldest window still open so a rerun
// rebuilds that window from its first event.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.processed)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs--
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolWindowMetrics {
	info, ok := a.pools.Get(acc.Pool)
	if !ok {
		a.logger.Debug("pool not in directory, amounts in base units", zap.String("pool", acc.Pool.Hex()))
	}

	growth := computeProductGrowth(acc.Open, acc.Close)
	return model.PoolWindowMetrics{
		PoolAddress:    acc.Pool,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		VolumeX:        formatTokenAmount(acc.VolumeX, info.DecimalsX),
		VolumeY:        formatTokenAmount(acc.VolumeY, info.DecimalsY),
		FeeX:           formatTokenAmount(acc.FeeX, info.DecimalsX),
		FeeY:           formatTokenAmount(acc.FeeY, info.DecimalsY),
		FeeRateX:       computeRate(acc.FeeX, acc.Close.X),
		FeeRateY:       computeRate(acc.FeeY, acc.Close.Y),
		ReserveX:       acc.Close.X,
		ReserveY:       acc.Close.Y,
		LPSupply:       acc.Close.Supply,
		ProductGrowth:  formatRat(growth),
		GrowthAPR:      computeAPR(growth, a.cfg.WindowSeconds),
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[common.Address]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}

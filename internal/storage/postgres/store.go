package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityPool/internal/model"
)

const defaultSnapshot = "default"

// Options controls connection setup.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// SnapshotName selects the row of the snapshots table this store reads
	// and writes.
	SnapshotName string
}

// Store provides Postgres persistence for pools, the event journal, world
// snapshots and report output.
type Store struct {
	pool         *pgxpool.Pool
	snapshotName string
}

// NewStore connects to dsn, retrying the first ping with doubling backoff.
func NewStore(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := newRetryPolicy(opts).do(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	name := opts.SnapshotName
	if name == "" {
		name = defaultSnapshot
	}
	return &Store{pool: pool, snapshotName: name}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseU64(field, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return n, nil
}

const upsertPoolSQL = `
	INSERT INTO pools (
		pool_address, authority, asset_x, asset_y, lp_mint, custody_x, custody_y,
		reserve_x, reserve_y, lp_supply, fee_bps, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::text::numeric,$9::text::numeric,$10::text::numeric,$11,$12,$13)
	ON CONFLICT (pool_address)
	DO UPDATE SET
		reserve_x = EXCLUDED.reserve_x,
		reserve_y = EXCLUDED.reserve_y,
		lp_supply = EXCLUDED.lp_supply,
		updated_at = EXCLUDED.updated_at
`

func queuePool(batch *pgx.Batch, p model.PoolState) {
	batch.Queue(upsertPoolSQL,
		p.Address.Hex(),
		p.Authority.Hex(),
		p.AssetX.Hex(),
		p.AssetY.Hex(),
		p.LPMint.Hex(),
		p.CustodyX.Hex(),
		p.CustodyY.Hex(),
		u64(p.ReserveX),
		u64(p.ReserveY),
		u64(p.LPSupply),
		int64(p.FeeBps),
		p.CreatedAt,
		p.UpdatedAt,
	)
}

// UpsertPools inserts or updates pool records. Immutable columns keep their
// first value.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolState) error {
	return s.upsertPools(ctx, s.pool, pools)
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (s *Store) upsertPools(ctx context.Context, conn batchSender, pools []model.PoolState) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		queuePool(batch, p)
	}

	br := conn.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pool: %w", err)
		}
	}
	return nil
}

// ListPools returns the pool table ordered by address.
func (s *Store) ListPools(ctx context.Context) ([]model.PoolState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, authority, asset_x, asset_y, lp_mint, custody_x, custody_y,
			reserve_x::text, reserve_y::text, lp_supply::text, fee_bps, created_at, updated_at
		FROM pools ORDER BY pool_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var out []model.PoolState
	for rows.Next() {
		var (
			addr, authority, assetX, assetY, lpMint, custodyX, custodyY string
			reserveX, reserveY, supply                                  string
			fee                                                         int64
			p                                                           model.PoolState
		)
		if err := rows.Scan(&addr, &authority, &assetX, &assetY, &lpMint, &custodyX, &custodyY,
			&reserveX, &reserveY, &supply, &fee, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		p.Address = common.HexToAddress(addr)
		p.Authority = common.HexToAddress(authority)
		p.AssetX = common.HexToAddress(assetX)
		p.AssetY = common.HexToAddress(assetY)
		p.LPMint = common.HexToAddress(lpMint)
		p.CustodyX = common.HexToAddress(custodyX)
		p.CustodyY = common.HexToAddress(custodyY)
		p.FeeBps = uint64(fee)
		if p.ReserveX, err = parseU64("reserve_x", reserveX); err != nil {
			return nil, err
		}
		if p.ReserveY, err = parseU64("reserve_y", reserveY); err != nil {
			return nil, err
		}
		if p.LPSupply, err = parseU64("lp_supply", supply); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PutEvents appends pool events to the journal table. Replayed ids are ignored.
func (s *Store) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				id, kind, pool_address, caller, amount_x, amount_y, lp_amount, fee_x, fee_y,
				reserve_x, reserve_y, lp_supply, fee_bps, event_ts
			) VALUES ($1,$2,$3,$4,$5::text::numeric,$6::text::numeric,$7::text::numeric,$8::text::numeric,$9::text::numeric,
				$10::text::numeric,$11::text::numeric,$12::text::numeric,$13,$14)
			ON CONFLICT (id) DO NOTHING
		`,
			ev.ID,
			ev.Kind,
			ev.Pool.Hex(),
			ev.Caller.Hex(),
			u64(ev.AmountX),
			u64(ev.AmountY),
			u64(ev.LPAmount),
			u64(ev.FeeX),
			u64(ev.FeeY),
			u64(ev.ReserveX),
			u64(ev.ReserveY),
			u64(ev.LPSupply),
			int64(ev.FeeBps),
			int64(ev.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert pool event: %w", err)
		}
	}
	return nil
}

// ReadEvents streams journal events with a timestamp above after, in commit
// order.
func (s *Store) ReadEvents(ctx context.Context, after uint64, fn func(model.PoolEvent) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, pool_address, caller, amount_x::text, amount_y::text, lp_amount::text,
			fee_x::text, fee_y::text, reserve_x::text, reserve_y::text, lp_supply::text, fee_bps, event_ts
		FROM pool_events WHERE event_ts > $1 ORDER BY event_ts, seq
	`, int64(after))
	if err != nil {
		return fmt.Errorf("query pool events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev           model.PoolEvent
			pool, caller string
			amounts      [8]string
			fee, ts      int64
		)
		if err := rows.Scan(&ev.ID, &ev.Kind, &pool, &caller,
			&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5], &amounts[6], &amounts[7],
			&fee, &ts); err != nil {
			return fmt.Errorf("scan pool event: %w", err)
		}
		ev.Pool = common.HexToAddress(pool)
		ev.Caller = common.HexToAddress(caller)
		ev.FeeBps = uint64(fee)
		ev.Timestamp = uint64(ts)

		targets := []*uint64{&ev.AmountX, &ev.AmountY, &ev.LPAmount, &ev.FeeX, &ev.FeeY, &ev.ReserveX, &ev.ReserveY, &ev.LPSupply}
		for i, dst := range targets {
			if *dst, err = parseU64("event amount", amounts[i]); err != nil {
				return err
			}
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Load returns the stored world snapshot.
func (s *Store) Load(ctx context.Context) (model.Snapshot, bool, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT payload FROM snapshots WHERE name=$1`, s.snapshotName)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}

// Save writes the snapshot and mirrors its pools into the pools table in one
// transaction.
func (s *Store) Save(ctx context.Context, snap model.Snapshot) error {
	if snap.SavedAt == "" {
		snap.SavedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshots (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`, s.snapshotName, payload); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.upsertPools(ctx, tx, snap.Pools); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposit_count, withdraw_count, volume_x, volume_y, fee_x, fee_y,
				fee_rate_x, fee_rate_y, reserve_x, reserve_y, lp_supply, product_growth, growth_apr, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::text::numeric,$9::text::numeric,$10::text::numeric,$11::text::numeric,
				$12::text::numeric,$13::text::numeric,$14::text::numeric,$15::text::numeric,$16::text::numeric,$17::text::numeric,
				$18::text::numeric,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				fee_rate_x = EXCLUDED.fee_rate_x,
				fee_rate_y = EXCLUDED.fee_rate_y,
				reserve_x = EXCLUDED.reserve_x,
				reserve_y = EXCLUDED.reserve_y,
				lp_supply = EXCLUDED.lp_supply,
				product_growth = EXCLUDED.product_growth,
				growth_apr = EXCLUDED.growth_apr,
				updated_at = now()
		`,
			m.PoolAddress.Hex(),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			m.VolumeX,
			m.VolumeY,
			m.FeeX,
			m.FeeY,
			m.FeeRateX,
			m.FeeRateY,
			u64(m.ReserveX),
			u64(m.ReserveY),
			u64(m.LPSupply),
			m.ProductGrowth,
			m.GrowthAPR,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM report_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

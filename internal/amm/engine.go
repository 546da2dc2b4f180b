// Package amm implements a two-asset constant-product pool program settling
// against the custody ledger.
package amm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

const (
	opInitialize      = "initialize"
	opAddLiquidity    = "add_liquidity"
	opRemoveLiquidity = "remove_liquidity"
	opSwapXForY       = "swap_x_for_y"
	opSwapYForX       = "swap_y_for_x"
)

// Config controls engine behavior. Zero values select the defaults.
type Config struct {
	DepositPolicy DepositPolicy
	Verifier      Verifier
	Nonces        *NonceTracker
	Now           func() time.Time
}

// Engine serializes requests per pool and commits each one atomically with
// the custody ledger.
type Engine struct {
	cfg      Config
	ledger   *ledger.Ledger
	store    storage.PoolStore
	sink     storage.EventSink
	verifier Verifier
	nonces   *NonceTracker
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[common.Address]*sync.Mutex
}

func NewEngine(cfg Config, l *ledger.Ledger, store storage.PoolStore, sink storage.EventSink, logger *zap.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DepositPolicy == "" {
		cfg.DepositPolicy = DepositProportional
	}
	if cfg.Verifier == nil {
		cfg.Verifier = SignatureVerifier{}
	}
	if cfg.Nonces == nil {
		cfg.Nonces = NewNonceTracker()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		cfg:      cfg,
		ledger:   l,
		store:    store,
		sink:     sink,
		verifier: cfg.Verifier,
		nonces:   cfg.Nonces,
		logger:   logger,
		metrics:  metrics,
		now:      cfg.Now,
		locks:    make(map[common.Address]*sync.Mutex),
	}
}

// Nonces returns the nonce tracker of the engine.
func (e *Engine) Nonces() *NonceTracker {
	return e.nonces
}

func (e *Engine) lock(pool common.Address) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[pool]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[pool] = mu
	}
	e.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// run authorizes req, then runs fn holding the lock of pool. The request
// nonce is committed only when fn succeeds.
func (e *Engine) run(ctx context.Context, op string, req Request, pool common.Address, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		e.metrics.observe(op, start, err)
		if err != nil {
			e.logger.Debug("request rejected",
				zap.String("op", op),
				zap.String("pool", pool.Hex()),
				zap.String("caller", req.Caller().Hex()),
				zap.Error(err),
			)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.authorize(req); err != nil {
		return err
	}

	unlock := e.lock(pool)
	err = fn()
	if err != nil {
		e.nonces.Release(req.Caller(), req.RequestNonce())
	} else {
		e.nonces.Commit(req.Caller(), req.RequestNonce())
	}
	unlock()
	return err
}

// load reads a pool record fresh from the store.
func (e *Engine) load(ctx context.Context, address common.Address) (model.PoolState, error) {
	p, found, err := e.store.GetPool(ctx, address)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("load pool: %w", err)
	}
	if !found {
		return model.PoolState{}, ErrPoolNotFound.Wrapf("pool %s", address.Hex())
	}
	return p, nil
}

// loadBound loads the pool a request names and checks the request accounts
// and the pool's pre-state against the ledger.
func (e *Engine) loadBound(ctx context.Context, accounts model.PoolAccounts) (model.PoolState, error) {
	p, err := e.load(ctx, accounts.Pool)
	if err != nil {
		return model.PoolState{}, err
	}
	if err := checkBinding(p, accounts); err != nil {
		return model.PoolState{}, err
	}
	if err := ValidatePool(p); err != nil {
		return model.PoolState{}, err
	}
	if err := e.checkCustody(p); err != nil {
		return model.PoolState{}, err
	}
	return p, nil
}

// commit applies ops and the new pool record as one unit. The batch asserts
// that custody balances and LP supply equal the new record.
func (e *Engine) commit(ctx context.Context, next model.PoolState, ops []ledger.Op) error {
	ops = append(ops,
		ledger.ExpectBalance(next.CustodyX, next.ReserveX),
		ledger.ExpectBalance(next.CustodyY, next.ReserveY),
		ledger.ExpectSupply(next.LPMint, next.LPSupply),
	)
	var storeErr error
	err := e.ledger.Execute(ops, func() error {
		if err := e.store.PutPool(ctx, next); err != nil {
			storeErr = fmt.Errorf("save pool: %w", err)
			return storeErr
		}
		return nil
	})
	if err != nil {
		if storeErr != nil {
			return storeErr
		}
		return ledgerError(err)
	}
	e.metrics.recordPool(next)
	return nil
}

// emit stamps ev with the post-state and hands it to the sink. Sink failures
// do not affect the committed request.
func (e *Engine) emit(ctx context.Context, ev model.PoolEvent, post model.PoolState) {
	ev.ID = uuid.NewString()
	ev.ReserveX = post.ReserveX
	ev.ReserveY = post.ReserveY
	ev.LPSupply = post.LPSupply
	ev.FeeBps = post.FeeBps
	ev.Timestamp = uint64(post.UpdatedAt.Unix())

	if e.sink == nil {
		return
	}
	if err := e.sink.PutEvents(ctx, []model.PoolEvent{ev}); err != nil {
		e.logger.Warn("write pool event failed",
			zap.String("kind", ev.Kind),
			zap.String("pool", ev.Pool.Hex()),
			zap.Error(err),
		)
	}
}

// Pool returns the stored record of a pool.
func (e *Engine) Pool(ctx context.Context, address common.Address) (model.PoolState, error) {
	return e.load(ctx, address)
}

// PoolForPair returns the pool of an unordered asset pair.
func (e *Engine) PoolForPair(ctx context.Context, assetA, assetB common.Address) (model.PoolState, error) {
	return e.load(ctx, PoolAddress(assetA, assetB))
}

// Pools lists every stored pool.
func (e *Engine) Pools(ctx context.Context) ([]model.PoolState, error) {
	pools, err := e.store.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}

// QuoteSwap prices a swap against the current state of a pool.
func (e *Engine) QuoteSwap(ctx context.Context, pool common.Address, dir Direction, amountIn uint64) (SwapQuote, error) {
	p, err := e.load(ctx, pool)
	if err != nil {
		return SwapQuote{}, err
	}
	return QuoteSwap(p, dir, amountIn)
}

// QuoteAdd returns the LP shares a deposit would mint now.
func (e *Engine) QuoteAdd(ctx context.Context, pool common.Address, amountX, amountY uint64) (uint64, error) {
	p, err := e.load(ctx, pool)
	if err != nil {
		return 0, err
	}
	return QuoteDeposit(p, amountX, amountY, e.cfg.DepositPolicy)
}

// QuoteRemove returns what burning lpAmount shares would pay out now.
func (e *Engine) QuoteRemove(ctx context.Context, pool common.Address, lpAmount uint64) (uint64, uint64, error) {
	p, err := e.load(ctx, pool)
	if err != nil {
		return 0, 0, err
	}
	return QuoteWithdrawal(p, lpAmount)
}

// RefreshMetrics sets the pool gauges from the stored records. Used after the
// engine is built over restored state.
func (e *Engine) RefreshMetrics(ctx context.Context) error {
	if e.metrics == nil {
		return nil
	}
	pools, err := e.Pools(ctx)
	if err != nil {
		return err
	}
	for _, p := range pools {
		e.metrics.recordPool(p)
	}
	e.metrics.PoolsTotal.Set(float64(len(pools)))
	return nil
}

package amm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

type recordingSink struct {
	mu     sync.Mutex
	events []model.PoolEvent
}

func (s *recordingSink) PutEvents(_ context.Context, events []model.PoolEvent) error {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

// failingStore refuses writes while fail is set.
type failingStore struct {
	*storage.MemoryPoolStore
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *failingStore) PutPool(ctx context.Context, p model.PoolState) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return s.MemoryPoolStore.PutPool(ctx, p)
}

// tb is satisfied by *testing.T and *rapid.T.
type tb interface {
	require.TestingT
	Helper()
}

type wallet struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newWallet(t tb) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

type harness struct {
	t      tb
	ctx    context.Context
	ledger *ledger.Ledger
	store  *failingStore
	sink   *recordingSink
	engine *Engine

	admin  wallet
	trader wallet
	assetX common.Address
	assetY common.Address
	nonces map[common.Address]uint64
}

func newHarness(t tb, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		ledger: ledger.New(),
		store:  &failingStore{MemoryPoolStore: storage.NewMemoryPoolStore()},
		sink:   &recordingSink{},
		admin:  newWallet(t),
		trader: newWallet(t),
		assetX: common.HexToAddress("0x1000000000000000000000000000000000000001"),
		assetY: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		nonces: make(map[common.Address]uint64),
	}
	h.engine = NewEngine(cfg, h.ledger, h.store, h.sink, nil, NewMetrics(nil))

	for _, asset := range []common.Address{h.assetX, h.assetY} {
		require.NoError(t, h.ledger.CreateMint(asset, h.admin.addr, 9))
	}
	h.fund(h.trader.addr, 1_000_000_000, 1_000_000_000)
	return h
}

func (h *harness) nonce(addr common.Address) uint64 {
	n := h.nonces[addr]
	h.nonces[addr] = n + 1
	return n
}

func (h *harness) fund(owner common.Address, x, y uint64) {
	h.t.Helper()
	for _, leg := range []struct {
		asset  common.Address
		amount uint64
	}{{h.assetX, x}, {h.assetY, y}} {
		acc, err := h.ledger.OpenAssociatedAccount(owner, leg.asset)
		require.NoError(h.t, err)
		if leg.amount > 0 {
			require.NoError(h.t, h.ledger.MintTo(leg.asset, acc, leg.amount, h.admin.addr))
		}
	}
}

func (h *harness) initRequest(fee uint64) InitializePoolRequest {
	h.t.Helper()
	req := InitializePoolRequest{
		Authority: h.admin.addr,
		AssetX:    h.assetX,
		AssetY:    h.assetY,
		FeeBps:    fee,
		Nonce:     h.nonce(h.admin.addr),
	}
	require.NoError(h.t, req.Sign(h.admin.key))
	return req
}

func (h *harness) initPool(fee uint64) model.PoolState {
	h.t.Helper()
	p, err := h.engine.InitializePool(h.ctx, h.initRequest(fee))
	require.NoError(h.t, err)
	_, err = h.ledger.OpenAssociatedAccount(h.trader.addr, p.LPMint)
	require.NoError(h.t, err)
	return p
}

func (h *harness) pool() model.PoolState {
	h.t.Helper()
	p, err := h.engine.PoolForPair(h.ctx, h.assetX, h.assetY)
	require.NoError(h.t, err)
	return p
}

func (h *harness) account(w wallet, mint common.Address) common.Address {
	return ledger.AssociatedAccount(w.addr, mint)
}

func (h *harness) addRequest(w wallet, x, y uint64) AddLiquidityRequest {
	h.t.Helper()
	p := h.pool()
	req := AddLiquidityRequest{
		Accounts:      p.Accounts(),
		Depositor:     w.addr,
		SourceX:       h.account(w, p.AssetX),
		SourceY:       h.account(w, p.AssetY),
		DestinationLP: h.account(w, p.LPMint),
		AmountX:       x,
		AmountY:       y,
		Nonce:         h.nonce(w.addr),
	}
	require.NoError(h.t, req.Sign(w.key))
	return req
}

func (h *harness) add(x, y uint64) (uint64, error) {
	h.t.Helper()
	return h.engine.AddLiquidity(h.ctx, h.addRequest(h.trader, x, y))
}

func (h *harness) removeRequest(w wallet, lp uint64, delegated bool) RemoveLiquidityRequest {
	h.t.Helper()
	p := h.pool()
	req := RemoveLiquidityRequest{
		Accounts:     p.Accounts(),
		Withdrawer:   w.addr,
		SourceLP:     h.account(w, p.LPMint),
		DestinationX: h.account(w, p.AssetX),
		DestinationY: h.account(w, p.AssetY),
		LPAmount:     lp,
		Delegated:    delegated,
		Nonce:        h.nonce(w.addr),
	}
	require.NoError(h.t, req.Sign(w.key))
	return req
}

func (h *harness) remove(lp uint64) (uint64, uint64, error) {
	h.t.Helper()
	return h.engine.RemoveLiquidity(h.ctx, h.removeRequest(h.trader, lp, false))
}

func (h *harness) swapRequest(w wallet, dir Direction, in uint64, delegated bool) SwapRequest {
	h.t.Helper()
	p := h.pool()
	assetIn, assetOut := p.AssetX, p.AssetY
	if dir == YForX {
		assetIn, assetOut = assetOut, assetIn
	}
	req := SwapRequest{
		Accounts:    p.Accounts(),
		Trader:      w.addr,
		Source:      h.account(w, assetIn),
		Destination: h.account(w, assetOut),
		AmountIn:    in,
		Delegated:   delegated,
		Nonce:       h.nonce(w.addr),
	}
	require.NoError(h.t, req.Sign(dir, w.key))
	return req
}

func (h *harness) swap(dir Direction, in uint64) (uint64, error) {
	h.t.Helper()
	return h.engine.Swap(h.ctx, dir, h.swapRequest(h.trader, dir, in, false))
}

func (h *harness) balance(w wallet, mint common.Address) uint64 {
	return h.ledger.Balance(h.account(w, mint))
}

// requireConsistent asserts the pool record agrees with the ledger.
func (h *harness) requireConsistent() {
	h.t.Helper()
	results, err := h.engine.CheckInvariants(h.ctx)
	require.NoError(h.t, err)
	for _, r := range results {
		require.False(h.t, r.Broken, r.Message)
	}
}

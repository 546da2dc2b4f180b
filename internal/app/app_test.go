package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/config"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

func fileConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		Backend:       config.BackendFile,
		StateFile:     filepath.Join(dir, "state.json"),
		Journal:       filepath.Join(dir, "events.jsonl"),
		DepositPolicy: "proportional",
	}
}

func TestOpenSaveReopen(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	assetX := common.HexToAddress("0x1000000000000000000000000000000000000001")
	assetY := common.HexToAddress("0x2000000000000000000000000000000000000002")

	a, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	for _, asset := range []common.Address{assetX, assetY} {
		require.NoError(t, a.Ledger.CreateMint(asset, owner, 6))
		acc, err := a.Ledger.OpenAssociatedAccount(owner, asset)
		require.NoError(t, err)
		require.NoError(t, a.Ledger.MintTo(asset, acc, 1_000, owner))
	}

	init := amm.InitializePoolRequest{Authority: owner, AssetX: assetX, AssetY: assetY, FeeBps: 30, Nonce: 0}
	require.NoError(t, init.Sign(key))
	pool, err := a.Engine.InitializePool(ctx, init)
	require.NoError(t, err)
	lpAccount, err := a.Ledger.OpenAssociatedAccount(owner, pool.LPMint)
	require.NoError(t, err)

	add := amm.AddLiquidityRequest{
		Accounts:      pool.Accounts(),
		Depositor:     owner,
		SourceX:       ledger.AssociatedAccount(owner, assetX),
		SourceY:       ledger.AssociatedAccount(owner, assetY),
		DestinationLP: lpAccount,
		AmountX:       400,
		AmountY:       100,
		Nonce:         1,
	}
	require.NoError(t, add.Sign(key))
	minted, err := a.Engine.AddLiquidity(ctx, add)
	require.NoError(t, err)
	require.Equal(t, uint64(200), minted)
	require.NoError(t, a.Save(ctx))
	a.Close()

	reopened, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Engine.Pool(ctx, pool.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(400), got.ReserveX)
	require.Equal(t, uint64(100), got.ReserveY)
	require.Equal(t, uint64(200), got.LPSupply)
	require.Equal(t, uint64(200), reopened.Ledger.Balance(lpAccount))
	require.Equal(t, uint64(2), reopened.Engine.Nonces().Next(owner))

	results, err := reopened.Engine.CheckInvariants(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Broken, results[0].Message)

	// a replay of the saved add request is refused after restart
	_, err = reopened.Engine.AddLiquidity(ctx, add)
	require.ErrorIs(t, err, amm.ErrUnauthorized)

	var kinds []string
	require.NoError(t, storage.ReadEvents(ctx, cfg.Journal, func(ev model.PoolEvent) error {
		kinds = append(kinds, ev.Kind)
		return nil
	}, nil))
	require.Equal(t, []string{model.EventInitialize, model.EventAddLiquidity}, kinds)
}

func TestOpenRejectsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)

	p, err := amm.NewPool(common.Address{}, common.HexToAddress("0x01"), common.HexToAddress("0x02"), 10, time.Time{})
	require.NoError(t, err)
	p.LPSupply = 5
	store := &storage.FileSnapshotStore{Path: cfg.StateFile}
	require.NoError(t, store.Save(ctx, model.Snapshot{Pools: []model.PoolState{p}}))

	_, err = Open(ctx, cfg, nil)
	require.ErrorIs(t, err, amm.ErrInvariantViolated)
}

func TestOpenRejectsUnknownPolicy(t *testing.T) {
	cfg := fileConfig(t)
	cfg.DepositPolicy = "greedy"
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestEphemeralIsNotPersisted(t *testing.T) {
	a := NewEphemeral(amm.DepositStrict, nil, nil)
	require.NoError(t, a.Save(context.Background()))
	snap, err := a.Snapshot(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Pools)
}

func TestSimulateScriptedScenario(t *testing.T) {
	ctx := context.Background()
	a := NewEphemeral(amm.DepositProportional, nil, nil)

	report, err := a.Simulate(ctx, SimulationConfig{FeeBps: 10, Pools: 2, Traders: 4, Swaps: 5})
	require.NoError(t, err)

	require.Len(t, report.Steps, 4)
	add, swapX, swapY, remove := report.Steps[0], report.Steps[1], report.Steps[2], report.Steps[3]
	require.Equal(t, uint64(500_000_000), add.LPAmount)
	require.Equal(t, uint64(500_000_000), add.ReserveX)
	require.Equal(t, uint64(750_000_000), swapX.ReserveX)
	require.Equal(t, add.ReserveY-swapX.AmountY, swapX.ReserveY)
	require.Equal(t, swapX.ReserveY+100_000_000, swapY.ReserveY)
	require.Equal(t, uint64(250_000_000), remove.LPAmount)
	require.Equal(t, uint64(250_000_000), remove.LPSupply)

	require.Equal(t, int64(20), report.Swaps+report.Rejected)
	require.Len(t, report.Pools, 2)
	require.Len(t, report.Invariants, 2)
	for _, res := range report.Invariants {
		require.False(t, res.Broken, res.Message)
	}
}

func TestSimulateRejectsEmptyRun(t *testing.T) {
	a := NewEphemeral(amm.DepositProportional, nil, nil)
	_, err := a.Simulate(context.Background(), SimulationConfig{Pools: 0, Traders: 1})
	require.Error(t, err)
}

func TestActionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewEphemeral(amm.DepositStrict, nil, nil)

	admin, err := newSimSigner()
	require.NoError(t, err)
	user, err := newSimSigner()
	require.NoError(t, err)

	assetX, err := a.CreateAsset(admin.Address, "AAA", 6)
	require.NoError(t, err)
	require.Equal(t, AssetAddress(admin.Address, "AAA"), assetX)
	_, err = a.CreateAsset(admin.Address, "AAA", 6)
	require.ErrorIs(t, err, ledger.ErrMintExists)
	assetY, err := a.CreateAsset(admin.Address, "BBB", 6)
	require.NoError(t, err)

	for _, asset := range []common.Address{assetX, assetY} {
		_, err := a.Fund(asset, user.Address, 10_000, admin.Address)
		require.NoError(t, err)
	}
	_, err = a.Fund(assetX, user.Address, 1, user.Address)
	require.ErrorIs(t, err, ledger.ErrMintAuthority)

	pool, err := a.InitPool(ctx, user, assetX, assetY, 30)
	require.NoError(t, err)

	minted, err := a.Deposit(ctx, user, pool.Address, 1_000, 1_000, 0, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), minted)

	// a delegated swap needs an approval first
	_, err = a.Trade(ctx, user, pool.Address, amm.XForY, 100, 0, true)
	require.ErrorIs(t, err, amm.ErrUnauthorized)
	require.NoError(t, a.Approve(user.Address, assetX, pool.Address, 100))
	out, err := a.Trade(ctx, user, pool.Address, amm.XForY, 100, 0, true)
	require.NoError(t, err)
	require.Positive(t, out)

	paidX, paidY, err := a.Withdraw(ctx, user, pool.Address, 1_000, 0, 0, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1_100), paidX)
	require.Equal(t, uint64(1_000)-out, paidY)
	require.Equal(t, uint64(10_000), a.Ledger.Balance(ledger.AssociatedAccount(user.Address, assetX)))
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// Quantities of the scripted scenario, in base units.
const (
	simFunding       uint64 = 1_000_000_000
	simTraderFunding uint64 = 100_000_000
	simDecimals      uint8  = 6
)

// SimulationConfig sizes a simulation run.
type SimulationConfig struct {
	FeeBps  uint64
	Pools   int
	Traders int
	// Swaps is the number of swaps each trader submits after the scripted
	// scenario.
	Swaps int
}

// SimulationStep records one scripted operation.
type SimulationStep struct {
	Step     string         `json:"step"`
	Pool     common.Address `json:"pool"`
	AmountX  uint64         `json:"amount_x,omitempty"`
	AmountY  uint64         `json:"amount_y,omitempty"`
	LPAmount uint64         `json:"lp_amount,omitempty"`
	ReserveX uint64         `json:"reserve_x"`
	ReserveY uint64         `json:"reserve_y"`
	LPSupply uint64         `json:"lp_supply"`
}

// SimulationReport summarizes a simulation run.
type SimulationReport struct {
	Steps      []SimulationStep      `json:"steps"`
	Swaps      int64                 `json:"swaps"`
	Rejected   int64                 `json:"rejected"`
	Pools      []model.PoolState     `json:"pools"`
	Invariants []amm.InvariantResult `json:"invariants"`
}

// Simulate runs the scripted lifecycle of a pool and then lets traders swap
// concurrently across cfg.Pools pools. Requests rejected by the pool program
// are counted; any other failure aborts the run.
func (a *App) Simulate(ctx context.Context, cfg SimulationConfig) (SimulationReport, error) {
	if cfg.Pools <= 0 || cfg.Traders <= 0 {
		return SimulationReport{}, fmt.Errorf("pools and traders must be positive")
	}

	admin, err := newSimSigner()
	if err != nil {
		return SimulationReport{}, err
	}
	owner, err := newSimSigner()
	if err != nil {
		return SimulationReport{}, err
	}
	alice, err := newSimSigner()
	if err != nil {
		return SimulationReport{}, err
	}

	pools := make([]model.PoolState, 0, cfg.Pools)
	for i := 0; i < cfg.Pools; i++ {
		assetX, err := a.CreateAsset(admin.Address, fmt.Sprintf("X%d", i), simDecimals)
		if err != nil {
			return SimulationReport{}, err
		}
		assetY, err := a.CreateAsset(admin.Address, fmt.Sprintf("Y%d", i), simDecimals)
		if err != nil {
			return SimulationReport{}, err
		}
		for _, asset := range []common.Address{assetX, assetY} {
			for _, holder := range []common.Address{owner.Address, alice.Address} {
				if _, err := a.Fund(asset, holder, simFunding, admin.Address); err != nil {
					return SimulationReport{}, err
				}
			}
		}
		p, err := a.InitPool(ctx, owner, assetX, assetY, cfg.FeeBps)
		if err != nil {
			return SimulationReport{}, err
		}
		pools = append(pools, p)
	}

	var report SimulationReport
	if err := a.scripted(ctx, &report, pools[0], owner, alice); err != nil {
		return SimulationReport{}, err
	}
	for _, p := range pools[1:] {
		if _, err := a.Deposit(ctx, owner, p.Address, simFunding/2, simFunding/2, 0, false); err != nil {
			return SimulationReport{}, err
		}
	}

	if cfg.Swaps > 0 {
		if err := a.trade(ctx, &report, cfg, admin, pools); err != nil {
			return SimulationReport{}, err
		}
	}

	report.Pools, err = a.Engine.Pools(ctx)
	if err != nil {
		return SimulationReport{}, err
	}
	report.Invariants, err = a.Engine.CheckInvariants(ctx)
	if err != nil {
		return SimulationReport{}, err
	}
	a.logger.Info("simulation complete",
		zap.Int("pools", len(report.Pools)),
		zap.Int64("swaps", report.Swaps),
		zap.Int64("rejected", report.Rejected),
	)
	return report, nil
}

// scripted walks one pool through deposit, delegated swaps in both
// directions and a delegated withdrawal of half the shares.
func (a *App) scripted(ctx context.Context, report *SimulationReport, p model.PoolState, owner, alice Signer) error {
	record := func(step string, x, y, lp uint64) error {
		cur, err := a.Engine.Pool(ctx, p.Address)
		if err != nil {
			return err
		}
		report.Steps = append(report.Steps, SimulationStep{
			Step: step, Pool: p.Address, AmountX: x, AmountY: y, LPAmount: lp,
			ReserveX: cur.ReserveX, ReserveY: cur.ReserveY, LPSupply: cur.LPSupply,
		})
		return nil
	}

	minted, err := a.Deposit(ctx, owner, p.Address, simFunding/2, simFunding/2, 0, false)
	if err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	if err := record("add_liquidity", simFunding/2, simFunding/2, minted); err != nil {
		return err
	}

	amountX := simFunding / 4
	if err := a.Approve(alice.Address, p.AssetX, p.Address, amountX); err != nil {
		return err
	}
	outY, err := a.Trade(ctx, alice, p.Address, amm.XForY, amountX, 0, true)
	if err != nil {
		return fmt.Errorf("swap x for y: %w", err)
	}
	if err := record("swap_x_for_y", amountX, outY, 0); err != nil {
		return err
	}

	amountY := simFunding / 10
	if err := a.Approve(alice.Address, p.AssetY, p.Address, amountY); err != nil {
		return err
	}
	outX, err := a.Trade(ctx, alice, p.Address, amm.YForX, amountY, 0, true)
	if err != nil {
		return fmt.Errorf("swap y for x: %w", err)
	}
	if err := record("swap_y_for_x", outX, amountY, 0); err != nil {
		return err
	}

	cur, err := a.Engine.Pool(ctx, p.Address)
	if err != nil {
		return err
	}
	lpAmount := cur.LPSupply / 2
	if err := a.Approve(owner.Address, p.LPMint, p.Address, lpAmount); err != nil {
		return err
	}
	paidX, paidY, err := a.Withdraw(ctx, owner, p.Address, lpAmount, 0, 0, true)
	if err != nil {
		return fmt.Errorf("remove liquidity: %w", err)
	}
	return record("remove_liquidity", paidX, paidY, lpAmount)
}

// trade funds cfg.Traders traders and runs their swaps concurrently. Trader i
// trades on pool i mod len(pools) and alternates directions.
func (a *App) trade(ctx context.Context, report *SimulationReport, cfg SimulationConfig, admin Signer, pools []model.PoolState) error {
	traders := make([]Signer, cfg.Traders)
	for i := range traders {
		s, err := newSimSigner()
		if err != nil {
			return err
		}
		p := pools[i%len(pools)]
		for _, asset := range []common.Address{p.AssetX, p.AssetY} {
			if _, err := a.Fund(asset, s.Address, simTraderFunding, admin.Address); err != nil {
				return err
			}
		}
		traders[i] = s
	}

	var swaps, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range traders {
		i, s := i, s
		p := pools[i%len(pools)]
		g.Go(func() error {
			for k := 0; k < cfg.Swaps; k++ {
				dir := amm.XForY
				if (i+k)%2 == 1 {
					dir = amm.YForX
				}
				amount := simAmount(i, k)
				if _, err := a.Trade(gctx, s, p.Address, dir, amount, 0, false); err != nil {
					if !isProgramError(err) {
						return fmt.Errorf("trader %d swap %d: %w", i, k, err)
					}
					rejected.Add(1)
					a.logger.Debug("swap rejected", zap.Int("trader", i), zap.Error(err))
					continue
				}
				swaps.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	report.Swaps = swaps.Load()
	report.Rejected = rejected.Load()
	return nil
}

// simAmount spreads swap sizes between 0.1 and 1.1 units of a 6 decimal asset.
func simAmount(trader, swap int) uint64 {
	return 100_000 + uint64(trader*7_919+swap*104_729)%1_000_000
}

// isProgramError reports whether err is a rejection coded by the pool program
// or the custody ledger.
func isProgramError(err error) bool {
	var coded *errorsmod.Error
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Codespace() == amm.Codespace || coded.Codespace() == ledger.Codespace
}

func newSimSigner() (Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Signer{}, fmt.Errorf("generate key: %w", err)
	}
	return NewSigner(key), nil
}

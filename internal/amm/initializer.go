package amm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// NewPool builds the record of an empty pool for the given pair and fee.
func NewPool(authority, assetX, assetY common.Address, feeBps uint64, now time.Time) (model.PoolState, error) {
	if assetX == assetY {
		return model.PoolState{}, ErrIdenticalAssets.Wrapf("asset %s", assetX.Hex())
	}
	if feeBps >= BpsDenominator {
		return model.PoolState{}, ErrInvalidFeeRate.Wrapf("fee %d bps", feeBps)
	}

	pool := PoolAddress(assetX, assetY)
	return model.PoolState{
		Address:   pool,
		Authority: authority,
		AssetX:    assetX,
		AssetY:    assetY,
		LPMint:    LPMintAddress(pool),
		CustodyX:  CustodyAddress(pool, assetX),
		CustodyY:  CustodyAddress(pool, assetY),
		FeeBps:    feeBps,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// InitializePool creates a pool for an unordered asset pair together with
// its LP mint and custody accounts.
func (e *Engine) InitializePool(ctx context.Context, req InitializePoolRequest) (model.PoolState, error) {
	var created model.PoolState
	err := e.run(ctx, opInitialize, req, PoolAddress(req.AssetX, req.AssetY), func() error {
		p, err := NewPool(req.Authority, req.AssetX, req.AssetY, req.FeeBps, e.now().UTC())
		if err != nil {
			return err
		}

		if _, found, err := e.store.GetPool(ctx, p.Address); err != nil {
			return fmt.Errorf("load pool: %w", err)
		} else if found {
			return ErrPoolAlreadyExists.Wrapf("pool %s for %s/%s", p.Address.Hex(), p.AssetX.Hex(), p.AssetY.Hex())
		}
		for _, asset := range []common.Address{p.AssetX, p.AssetY} {
			if _, ok := e.ledger.Mint(asset); !ok {
				return ErrAccountMismatch.Wrapf("asset %s is not a mint", asset.Hex())
			}
		}

		ops := []ledger.Op{
			ledger.CreateMint(p.LPMint, p.Address, LPDecimals),
			ledger.OpenAccount(p.CustodyX, p.AssetX, p.Address),
			ledger.OpenAccount(p.CustodyY, p.AssetY, p.Address),
		}
		if err := e.commit(ctx, p, ops); err != nil {
			return err
		}

		created = p
		e.emit(ctx, model.PoolEvent{
			Kind:   model.EventInitialize,
			Pool:   p.Address,
			Caller: req.Authority,
		}, p)
		if e.metrics != nil {
			e.metrics.PoolsTotal.Inc()
		}
		e.logger.Info("pool initialized",
			zap.String("pool", p.Address.Hex()),
			zap.String("asset_x", p.AssetX.Hex()),
			zap.String("asset_y", p.AssetY.Hex()),
			zap.Uint64("fee_bps", p.FeeBps),
		)
		return nil
	})
	return created, err
}

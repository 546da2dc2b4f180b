package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/model"
)

// InvariantResult is the outcome of checking one pool.
type InvariantResult struct {
	Pool     common.Address `json:"pool"`
	ReserveX uint64         `json:"reserve_x"`
	ReserveY uint64         `json:"reserve_y"`
	LPSupply uint64         `json:"lp_supply"`
	Broken   bool           `json:"broken"`
	Message  string         `json:"message,omitempty"`
}

// CheckInvariants verifies every stored pool: static record rules, LP supply
// zero exactly when reserves are zero, and reserves and LP supply matching
// the ledger. Each pool is checked under its lock.
func (e *Engine) CheckInvariants(ctx context.Context) ([]InvariantResult, error) {
	pools, err := e.Pools(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]InvariantResult, 0, len(pools))
	for _, listed := range pools {
		res, err := e.checkPool(ctx, listed.Address)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) checkPool(ctx context.Context, address common.Address) (InvariantResult, error) {
	unlock := e.lock(address)
	defer unlock()

	p, err := e.load(ctx, address)
	if err != nil {
		return InvariantResult{}, err
	}
	res := InvariantResult{
		Pool:     p.Address,
		ReserveX: p.ReserveX,
		ReserveY: p.ReserveY,
		LPSupply: p.LPSupply,
	}
	if err := e.checkState(p); err != nil {
		res.Broken = true
		res.Message = err.Error()
		e.logger.Warn("pool invariant broken", zap.String("pool", p.Address.Hex()), zap.Error(err))
	}
	return res, nil
}

func (e *Engine) checkState(p model.PoolState) error {
	if err := ValidatePool(p); err != nil {
		return err
	}
	if err := e.checkCustody(p); err != nil {
		return fmt.Errorf("custody: %w", err)
	}
	return nil
}

package amm

import (
	"liquidityPool/internal/model"
)

const (
	// BpsDenominator is the basis point scale of FeeBps.
	BpsDenominator = 10_000
	// LPDecimals is the precision of every LP share mint.
	LPDecimals = 6
)

// ValidatePool checks the static rules of a pool record: distinct assets, a
// fee below 100%, derived accounts, and LP supply zero exactly when both
// reserves are zero.
func ValidatePool(p model.PoolState) error {
	if p.AssetX == p.AssetY {
		return ErrIdenticalAssets.Wrapf("pool %s", p.Address.Hex())
	}
	if p.FeeBps >= BpsDenominator {
		return ErrInvalidFeeRate.Wrapf("fee %d bps", p.FeeBps)
	}
	if p.Address != PoolAddress(p.AssetX, p.AssetY) ||
		p.LPMint != LPMintAddress(p.Address) ||
		p.CustodyX != CustodyAddress(p.Address, p.AssetX) ||
		p.CustodyY != CustodyAddress(p.Address, p.AssetY) {
		return ErrAccountMismatch.Wrapf("pool %s accounts are not derived from its assets", p.Address.Hex())
	}
	empty := p.ReserveX == 0 && p.ReserveY == 0
	if (p.LPSupply == 0) != empty {
		return ErrInvariantViolated.Wrapf("pool %s lp supply %d with reserves (%d, %d)",
			p.Address.Hex(), p.LPSupply, p.ReserveX, p.ReserveY)
	}
	return nil
}

// checkCustody requires the stored reserves and LP supply to match the ledger.
func (e *Engine) checkCustody(p model.PoolState) error {
	if got := e.ledger.Balance(p.CustodyX); got != p.ReserveX {
		return ErrInvariantViolated.Wrapf("pool %s reserve x %d, custody holds %d", p.Address.Hex(), p.ReserveX, got)
	}
	if got := e.ledger.Balance(p.CustodyY); got != p.ReserveY {
		return ErrInvariantViolated.Wrapf("pool %s reserve y %d, custody holds %d", p.Address.Hex(), p.ReserveY, got)
	}
	m, ok := e.ledger.Mint(p.LPMint)
	if !ok {
		return ErrInvariantViolated.Wrapf("pool %s lp mint %s missing", p.Address.Hex(), p.LPMint.Hex())
	}
	if m.Supply != p.LPSupply {
		return ErrInvariantViolated.Wrapf("pool %s lp supply %d, mint holds %d", p.Address.Hex(), p.LPSupply, m.Supply)
	}
	return nil
}

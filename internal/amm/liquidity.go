package amm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// DepositPolicy selects how deposits into a funded pool are priced.
type DepositPolicy string

const (
	// DepositProportional mints against the smaller contribution ratio and
	// keeps the excess of the other asset in the pool.
	DepositProportional DepositPolicy = "proportional"
	// DepositStrict rejects deposits whose ratio differs from the reserves.
	DepositStrict DepositPolicy = "strict"
)

// ParseDepositPolicy parses a policy name, defaulting to proportional.
func ParseDepositPolicy(s string) (DepositPolicy, error) {
	switch DepositPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DepositProportional:
		return DepositProportional, nil
	case DepositStrict:
		return DepositStrict, nil
	default:
		return "", fmt.Errorf("unknown deposit policy %q", s)
	}
}

// QuoteDeposit returns the LP shares a deposit of amountX and amountY mints.
func QuoteDeposit(p model.PoolState, amountX, amountY uint64, policy DepositPolicy) (uint64, error) {
	if amountX == 0 || amountY == 0 {
		return 0, ErrInvalidAmount.Wrapf("deposit (%d, %d)", amountX, amountY)
	}

	if p.LPSupply == 0 {
		minted := fixedpoint.SqrtProduct(amountX, amountY)
		if minted == 0 {
			return 0, ErrInsufficientInitialLiquidity.Wrapf("sqrt(%d * %d) is zero", amountX, amountY)
		}
		return minted, nil
	}

	if policy == DepositStrict && fixedpoint.Product(amountX, p.ReserveY).Cmp(fixedpoint.Product(amountY, p.ReserveX)) != 0 {
		return 0, ErrImbalancedDeposit.Wrapf("deposit (%d, %d) against reserves (%d, %d)", amountX, amountY, p.ReserveX, p.ReserveY)
	}

	byX, err := fixedpoint.MulDivFloor(amountX, p.LPSupply, p.ReserveX)
	if err != nil {
		return 0, mathError(err, "lp from x")
	}
	byY, err := fixedpoint.MulDivFloor(amountY, p.LPSupply, p.ReserveY)
	if err != nil {
		return 0, mathError(err, "lp from y")
	}
	minted := min(byX, byY)
	if minted == 0 {
		return 0, ErrInsufficientInitialLiquidity.Wrapf("deposit (%d, %d) mints no shares", amountX, amountY)
	}
	return minted, nil
}

// QuoteWithdrawal returns the reserves paid out for burning lpAmount shares.
func QuoteWithdrawal(p model.PoolState, lpAmount uint64) (uint64, uint64, error) {
	if lpAmount == 0 {
		return 0, 0, ErrZeroWithdrawal.Wrap("lp amount is zero")
	}
	if lpAmount > p.LPSupply {
		return 0, 0, ErrInsufficientLpBalance.Wrapf("lp amount %d exceeds supply %d", lpAmount, p.LPSupply)
	}
	amountX, err := fixedpoint.MulDivFloor(lpAmount, p.ReserveX, p.LPSupply)
	if err != nil {
		return 0, 0, mathError(err, "withdraw x")
	}
	amountY, err := fixedpoint.MulDivFloor(lpAmount, p.ReserveY, p.LPSupply)
	if err != nil {
		return 0, 0, mathError(err, "withdraw y")
	}
	if amountX == 0 && amountY == 0 {
		return 0, 0, ErrZeroWithdrawal.Wrapf("%d shares pay out nothing", lpAmount)
	}
	return amountX, amountY, nil
}

func applyDeposit(p model.PoolState, amountX, amountY, minted uint64) (model.PoolState, error) {
	var err error
	if p.ReserveX, err = fixedpoint.CheckedAdd(p.ReserveX, amountX); err != nil {
		return p, mathError(err, "reserve x")
	}
	if p.ReserveY, err = fixedpoint.CheckedAdd(p.ReserveY, amountY); err != nil {
		return p, mathError(err, "reserve y")
	}
	if p.LPSupply, err = fixedpoint.CheckedAdd(p.LPSupply, minted); err != nil {
		return p, mathError(err, "lp supply")
	}
	return p, nil
}

func applyWithdrawal(p model.PoolState, lpAmount, amountX, amountY uint64) (model.PoolState, error) {
	var err error
	if p.ReserveX, err = fixedpoint.CheckedSub(p.ReserveX, amountX); err != nil {
		return p, mathError(err, "reserve x")
	}
	if p.ReserveY, err = fixedpoint.CheckedSub(p.ReserveY, amountY); err != nil {
		return p, mathError(err, "reserve y")
	}
	if p.LPSupply, err = fixedpoint.CheckedSub(p.LPSupply, lpAmount); err != nil {
		return p, mathError(err, "lp supply")
	}
	return p, nil
}

// AddLiquidity moves both amounts into custody and mints LP shares to the
// depositor's destination account.
func (e *Engine) AddLiquidity(ctx context.Context, req AddLiquidityRequest) (uint64, error) {
	var minted uint64
	err := e.run(ctx, opAddLiquidity, req, req.Accounts.Pool, func() error {
		p, err := e.loadBound(ctx, req.Accounts)
		if err != nil {
			return err
		}

		srcX, err := e.userAccount(req.SourceX, p.AssetX, req.Depositor, true)
		if err != nil {
			return err
		}
		srcY, err := e.userAccount(req.SourceY, p.AssetY, req.Depositor, true)
		if err != nil {
			return err
		}
		if _, err := e.userAccount(req.DestinationLP, p.LPMint, req.Depositor, false); err != nil {
			return err
		}

		out, err := QuoteDeposit(p, req.AmountX, req.AmountY, e.cfg.DepositPolicy)
		if err != nil {
			return err
		}
		if out < req.MinLPOut {
			return ErrSlippageExceeded.Wrapf("minted %d below minimum %d", out, req.MinLPOut)
		}
		if srcX.Balance < req.AmountX || srcY.Balance < req.AmountY {
			return ErrInsufficientFunds.Wrapf("deposit (%d, %d) with balances (%d, %d)",
				req.AmountX, req.AmountY, srcX.Balance, srcY.Balance)
		}
		if req.Delegated {
			if err := checkAllowance(srcX, p.Address, req.AmountX); err != nil {
				return err
			}
			if err := checkAllowance(srcY, p.Address, req.AmountY); err != nil {
				return err
			}
		}

		next, err := applyDeposit(p, req.AmountX, req.AmountY, out)
		if err != nil {
			return err
		}
		next.UpdatedAt = e.now().UTC()

		signer := debitSigner(p, req.Depositor, req.Delegated)
		ops := []ledger.Op{
			ledger.Transfer(p.AssetX, req.SourceX, p.CustodyX, req.AmountX, signer),
			ledger.Transfer(p.AssetY, req.SourceY, p.CustodyY, req.AmountY, signer),
			ledger.MintTo(p.LPMint, req.DestinationLP, out, p.Address),
		}
		if err := e.commit(ctx, next, ops); err != nil {
			return err
		}

		minted = out
		e.emit(ctx, model.PoolEvent{
			Kind:     model.EventAddLiquidity,
			Pool:     p.Address,
			Caller:   req.Depositor,
			AmountX:  req.AmountX,
			AmountY:  req.AmountY,
			LPAmount: out,
		}, next)
		e.logger.Debug("liquidity added",
			zap.String("pool", p.Address.Hex()),
			zap.String("depositor", req.Depositor.Hex()),
			zap.Uint64("amount_x", req.AmountX),
			zap.Uint64("amount_y", req.AmountY),
			zap.Uint64("minted", out),
		)
		return nil
	})
	return minted, err
}

// RemoveLiquidity burns LP shares and pays the withdrawer a pro-rata share of
// both reserves.
func (e *Engine) RemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (uint64, uint64, error) {
	var paidX, paidY uint64
	err := e.run(ctx, opRemoveLiquidity, req, req.Accounts.Pool, func() error {
		p, err := e.loadBound(ctx, req.Accounts)
		if err != nil {
			return err
		}

		src, err := e.userAccount(req.SourceLP, p.LPMint, req.Withdrawer, true)
		if err != nil {
			return err
		}
		if _, err := e.userAccount(req.DestinationX, p.AssetX, req.Withdrawer, false); err != nil {
			return err
		}
		if _, err := e.userAccount(req.DestinationY, p.AssetY, req.Withdrawer, false); err != nil {
			return err
		}

		amountX, amountY, err := QuoteWithdrawal(p, req.LPAmount)
		if err != nil {
			return err
		}
		if src.Balance < req.LPAmount {
			return ErrInsufficientLpBalance.Wrapf("account %s holds %d, burning %d", req.SourceLP.Hex(), src.Balance, req.LPAmount)
		}
		if amountX < req.MinAmountX || amountY < req.MinAmountY {
			return ErrSlippageExceeded.Wrapf("paid (%d, %d) below minimum (%d, %d)", amountX, amountY, req.MinAmountX, req.MinAmountY)
		}
		if req.Delegated {
			if err := checkAllowance(src, p.Address, req.LPAmount); err != nil {
				return err
			}
		}

		next, err := applyWithdrawal(p, req.LPAmount, amountX, amountY)
		if err != nil {
			return err
		}
		next.UpdatedAt = e.now().UTC()

		ops := []ledger.Op{
			ledger.Burn(p.LPMint, req.SourceLP, req.LPAmount, debitSigner(p, req.Withdrawer, req.Delegated)),
		}
		if amountX > 0 {
			ops = append(ops, ledger.Transfer(p.AssetX, p.CustodyX, req.DestinationX, amountX, p.Address))
		}
		if amountY > 0 {
			ops = append(ops, ledger.Transfer(p.AssetY, p.CustodyY, req.DestinationY, amountY, p.Address))
		}
		if err := e.commit(ctx, next, ops); err != nil {
			return err
		}

		paidX, paidY = amountX, amountY
		e.emit(ctx, model.PoolEvent{
			Kind:     model.EventRemoveLiquidity,
			Pool:     p.Address,
			Caller:   req.Withdrawer,
			AmountX:  amountX,
			AmountY:  amountY,
			LPAmount: req.LPAmount,
		}, next)
		e.logger.Debug("liquidity removed",
			zap.String("pool", p.Address.Hex()),
			zap.String("withdrawer", req.Withdrawer.Hex()),
			zap.Uint64("lp_amount", req.LPAmount),
			zap.Uint64("amount_x", amountX),
			zap.Uint64("amount_y", amountY),
		)
		return nil
	})
	return paidX, paidY, err
}

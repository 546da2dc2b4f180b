package amm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// Direction is the side of a swap.
type Direction uint8

const (
	XForY Direction = iota
	YForX
)

func (d Direction) String() string {
	switch d {
	case XForY:
		return "x_for_y"
	case YForX:
		return "y_for_x"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection parses "x_for_y" or "y_for_x".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "x_for_y", "x-for-y", "x2y":
		return XForY, nil
	case "y_for_x", "y-for-x", "y2x":
		return YForX, nil
	default:
		return 0, fmt.Errorf("unknown swap direction %q", s)
	}
}

// SwapQuote is the outcome of a swap against a given pool state.
type SwapQuote struct {
	Direction Direction
	AmountIn  uint64
	Fee       uint64
	AmountOut uint64
}

// sides returns the reserves a swap in dir reads from and pays out of.
func sides(p model.PoolState, dir Direction) (reserveIn, reserveOut uint64) {
	if dir == YForX {
		return p.ReserveY, p.ReserveX
	}
	return p.ReserveX, p.ReserveY
}

// QuoteSwap prices a swap of amountIn with the pool fee retained in the input
// reserve. The output never drains the opposite reserve.
func QuoteSwap(p model.PoolState, dir Direction, amountIn uint64) (SwapQuote, error) {
	if amountIn == 0 {
		return SwapQuote{}, ErrInvalidAmount.Wrap("swap amount is zero")
	}
	reserveIn, reserveOut := sides(p, dir)

	fee, err := fixedpoint.MulDivFloor(amountIn, p.FeeBps, BpsDenominator)
	if err != nil {
		return SwapQuote{}, mathError(err, "swap fee")
	}
	net := amountIn - fee
	denom, err := fixedpoint.CheckedAdd(reserveIn, net)
	if err != nil {
		return SwapQuote{}, mathError(err, "swap input reserve")
	}
	out, err := fixedpoint.MulDivFloor(reserveOut, net, denom)
	if err != nil {
		return SwapQuote{}, mathError(err, "swap output")
	}
	if out == 0 || out >= reserveOut {
		return SwapQuote{}, ErrInsufficientLiquidity.Wrapf("swap of %d yields %d against reserve %d", amountIn, out, reserveOut)
	}
	return SwapQuote{Direction: dir, AmountIn: amountIn, Fee: fee, AmountOut: out}, nil
}

func applySwap(p model.PoolState, q SwapQuote) (model.PoolState, error) {
	next := p
	var err error
	if q.Direction == YForX {
		if next.ReserveY, err = fixedpoint.CheckedAdd(p.ReserveY, q.AmountIn); err != nil {
			return p, mathError(err, "reserve y")
		}
		if next.ReserveX, err = fixedpoint.CheckedSub(p.ReserveX, q.AmountOut); err != nil {
			return p, mathError(err, "reserve x")
		}
	} else {
		if next.ReserveX, err = fixedpoint.CheckedAdd(p.ReserveX, q.AmountIn); err != nil {
			return p, mathError(err, "reserve x")
		}
		if next.ReserveY, err = fixedpoint.CheckedSub(p.ReserveY, q.AmountOut); err != nil {
			return p, mathError(err, "reserve y")
		}
	}

	before := fixedpoint.Product(p.ReserveX, p.ReserveY)
	after := fixedpoint.Product(next.ReserveX, next.ReserveY)
	if after.Lt(before) {
		return p, ErrInvariantViolated.Wrapf("reserve product fell from %s to %s", before.Dec(), after.Dec())
	}
	return next, nil
}

// SwapXForY sells AmountIn of asset X for asset Y.
func (e *Engine) SwapXForY(ctx context.Context, req SwapRequest) (uint64, error) {
	return e.swap(ctx, XForY, req)
}

// SwapYForX sells AmountIn of asset Y for asset X.
func (e *Engine) SwapYForX(ctx context.Context, req SwapRequest) (uint64, error) {
	return e.swap(ctx, YForX, req)
}

// Swap dispatches on dir.
func (e *Engine) Swap(ctx context.Context, dir Direction, req SwapRequest) (uint64, error) {
	return e.swap(ctx, dir, req)
}

func (e *Engine) swap(ctx context.Context, dir Direction, req SwapRequest) (uint64, error) {
	op, kind := opSwapXForY, model.EventSwapXForY
	if dir == YForX {
		op, kind = opSwapYForX, model.EventSwapYForX
	}

	var amountOut uint64
	err := e.run(ctx, op, directedSwap{SwapRequest: req, dir: dir}, req.Accounts.Pool, func() error {
		p, err := e.loadBound(ctx, req.Accounts)
		if err != nil {
			return err
		}

		assetIn, assetOut := p.AssetX, p.AssetY
		custodyIn, custodyOut := p.CustodyX, p.CustodyY
		if dir == YForX {
			assetIn, assetOut = assetOut, assetIn
			custodyIn, custodyOut = custodyOut, custodyIn
		}

		src, err := e.userAccount(req.Source, assetIn, req.Trader, true)
		if err != nil {
			return err
		}
		if _, err := e.userAccount(req.Destination, assetOut, req.Trader, false); err != nil {
			return err
		}

		q, err := QuoteSwap(p, dir, req.AmountIn)
		if err != nil {
			return err
		}
		if q.AmountOut < req.MinAmountOut {
			return ErrSlippageExceeded.Wrapf("output %d below minimum %d", q.AmountOut, req.MinAmountOut)
		}
		if src.Balance < req.AmountIn {
			return ErrInsufficientFunds.Wrapf("account %s holds %d, swapping %d", req.Source.Hex(), src.Balance, req.AmountIn)
		}
		if req.Delegated {
			if err := checkAllowance(src, p.Address, req.AmountIn); err != nil {
				return err
			}
		}

		next, err := applySwap(p, q)
		if err != nil {
			return err
		}
		next.UpdatedAt = e.now().UTC()

		ops := []ledger.Op{
			ledger.Transfer(assetIn, req.Source, custodyIn, req.AmountIn, debitSigner(p, req.Trader, req.Delegated)),
			ledger.Transfer(assetOut, custodyOut, req.Destination, q.AmountOut, p.Address),
		}
		if err := e.commit(ctx, next, ops); err != nil {
			return err
		}

		amountOut = q.AmountOut
		ev := model.PoolEvent{
			Kind:   kind,
			Pool:   p.Address,
			Caller: req.Trader,
		}
		if dir == YForX {
			ev.AmountY, ev.AmountX, ev.FeeY = q.AmountIn, q.AmountOut, q.Fee
		} else {
			ev.AmountX, ev.AmountY, ev.FeeX = q.AmountIn, q.AmountOut, q.Fee
		}
		e.emit(ctx, ev, next)
		e.metrics.recordSwap(p, assetIn, q)
		e.logger.Debug("swap executed",
			zap.String("pool", p.Address.Hex()),
			zap.String("trader", req.Trader.Hex()),
			zap.Stringer("direction", dir),
			zap.Uint64("amount_in", q.AmountIn),
			zap.Uint64("fee", q.Fee),
			zap.Uint64("amount_out", q.AmountOut),
		)
		return nil
	})
	return amountOut, err
}

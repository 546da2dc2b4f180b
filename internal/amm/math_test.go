package amm

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/model"
)

func testPool(reserveX, reserveY, supply, fee uint64) model.PoolState {
	p, err := NewPool(common.Address{}, common.HexToAddress("0x01"), common.HexToAddress("0x02"), fee, time.Time{})
	if err != nil {
		panic(err)
	}
	p.ReserveX, p.ReserveY, p.LPSupply = reserveX, reserveY, supply
	return p
}

func TestQuoteSwapScenario(t *testing.T) {
	q, err := QuoteSwap(testPool(500, 500, 500, 10), XForY, 250)
	require.NoError(t, err)
	require.Zero(t, q.Fee)
	require.Equal(t, uint64(166), q.AmountOut)

	q, err = QuoteSwap(testPool(500, 500, 500, 10), YForX, 250)
	require.NoError(t, err)
	require.Equal(t, uint64(166), q.AmountOut)
}

func TestQuoteSwapNeverDrains(t *testing.T) {
	_, err := QuoteSwap(testPool(0, 10, 0, 0), XForY, 5)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = QuoteSwap(testPool(10, 0, 0, 0), XForY, 5)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestQuoteWithdrawalScenario(t *testing.T) {
	x, y, err := QuoteWithdrawal(testPool(750, 419, 500_000_000, 10), 250_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(375), x)
	require.Equal(t, uint64(209), y)

	next, err := applyWithdrawal(testPool(750, 419, 500_000_000, 10), 250_000_000, x, y)
	require.NoError(t, err)
	require.Equal(t, uint64(250_000_000), next.LPSupply)
	require.Equal(t, uint64(375), next.ReserveX)
	require.Equal(t, uint64(210), next.ReserveY)

	_, _, err = QuoteWithdrawal(testPool(750, 419, 500_000_000, 10), 500_000_001)
	require.ErrorIs(t, err, ErrInsufficientLpBalance)

	_, _, err = QuoteWithdrawal(testPool(750, 419, 500_000_000, 10), 1)
	require.ErrorIs(t, err, ErrZeroWithdrawal)
}

func TestQuoteDeposit(t *testing.T) {
	minted, err := QuoteDeposit(testPool(0, 0, 0, 10), 500_000_000, 500_000_000, DepositProportional)
	require.NoError(t, err)
	require.Equal(t, uint64(500_000_000), minted)

	_, err = QuoteDeposit(testPool(0, 0, 0, 10), 0, 10, DepositProportional)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = QuoteDeposit(testPool(1_000_000, 1_000_000, 10, 10), 1, 1, DepositProportional)
	require.ErrorIs(t, err, ErrInsufficientInitialLiquidity)

	_, err = QuoteDeposit(testPool(100, 200, 141, 10), 10, 10, DepositStrict)
	require.ErrorIs(t, err, ErrImbalancedDeposit)
}

func TestNewPoolValidation(t *testing.T) {
	a, b := common.HexToAddress("0x01"), common.HexToAddress("0x02")

	_, err := NewPool(a, a, a, 10, time.Time{})
	require.ErrorIs(t, err, ErrIdenticalAssets)

	_, err = NewPool(a, a, b, 10_000, time.Time{})
	require.ErrorIs(t, err, ErrInvalidFeeRate)

	p, err := NewPool(a, b, a, 9_999, time.Time{})
	require.NoError(t, err)
	require.Equal(t, PoolAddress(a, b), p.Address)
	require.NoError(t, ValidatePool(p))

	p.LPSupply = 1
	require.ErrorIs(t, ValidatePool(p), ErrInvariantViolated)
}

func TestSwapProductNonDecreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rx := rapid.Uint64Range(1, 1<<40).Draw(t, "reserve_x")
		ry := rapid.Uint64Range(1, 1<<40).Draw(t, "reserve_y")
		fee := rapid.Uint64Range(0, BpsDenominator-1).Draw(t, "fee")
		in := rapid.Uint64Range(1, 1<<40).Draw(t, "amount_in")
		dir := Direction(rapid.IntRange(0, 1).Draw(t, "direction"))

		p := testPool(rx, ry, fixedpoint.SqrtProduct(rx, ry), fee)
		q, err := QuoteSwap(p, dir, in)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientLiquidity)
			return
		}
		_, reserveOut := sides(p, dir)
		require.Less(t, q.AmountOut, reserveOut)
		require.LessOrEqual(t, q.Fee, in)

		next, err := applySwap(p, q)
		require.NoError(t, err)
		before := fixedpoint.Product(p.ReserveX, p.ReserveY)
		after := fixedpoint.Product(next.ReserveX, next.ReserveY)
		require.False(t, after.Lt(before))
	})
}

func TestWithdrawalNeverExceedsReserves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rx := rapid.Uint64Range(1, 1<<50).Draw(t, "reserve_x")
		ry := rapid.Uint64Range(1, 1<<50).Draw(t, "reserve_y")
		supply := rapid.Uint64Range(1, 1<<50).Draw(t, "supply")
		lp := rapid.Uint64Range(1, supply).Draw(t, "lp")

		x, y, err := QuoteWithdrawal(testPool(rx, ry, supply, 0), lp)
		if err != nil {
			require.ErrorIs(t, err, ErrZeroWithdrawal)
			return
		}
		require.LessOrEqual(t, x, rx)
		require.LessOrEqual(t, y, ry)
		if lp == supply {
			require.Equal(t, rx, x)
			require.Equal(t, ry, y)
		}
	})
}

func TestDepositNeverDilutes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rx := rapid.Uint64Range(1, 1<<40).Draw(t, "reserve_x")
		ry := rapid.Uint64Range(1, 1<<40).Draw(t, "reserve_y")
		supply := rapid.Uint64Range(1, 1<<40).Draw(t, "supply")
		ax := rapid.Uint64Range(1, 1<<40).Draw(t, "amount_x")
		ay := rapid.Uint64Range(1, 1<<40).Draw(t, "amount_y")

		minted, err := QuoteDeposit(testPool(rx, ry, supply, 0), ax, ay, DepositProportional)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientInitialLiquidity)
			return
		}
		// minted/supply never exceeds either contribution ratio
		require.False(t, fixedpoint.Product(minted, rx).Gt(fixedpoint.Product(ax, supply)))
		require.False(t, fixedpoint.Product(minted, ry).Gt(fixedpoint.Product(ay, supply)))
	})
}

package report

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// computeRate returns fee/reserve, or nil when either side is zero.
func computeRate(fee *big.Int, reserve uint64) *string {
	if fee == nil || fee.Sign() == 0 || reserve == 0 {
		return nil
	}
	rat := new(big.Rat).SetFrac(fee, new(big.Int).SetUint64(reserve))
	val := rat.FloatString(ratioScale)
	return &val
}

// invariantPerShare returns x*y/supply², the squared value of one LP share in
// the pool's constant-product units.
func invariantPerShare(r reserves) *big.Rat {
	if r.Supply == 0 || r.X == 0 || r.Y == 0 {
		return nil
	}
	k := new(big.Int).Mul(new(big.Int).SetUint64(r.X), new(big.Int).SetUint64(r.Y))
	s := new(big.Int).SetUint64(r.Supply)
	return new(big.Rat).SetFrac(k, s.Mul(s, s))
}

// computeProductGrowth returns the relative change of the invariant per
// share across the window. Swap fees make it positive; deposits and
// withdrawals leave it unchanged up to rounding.
func computeProductGrowth(open, close reserves) *big.Rat {
	before := invariantPerShare(open)
	after := invariantPerShare(close)
	if before == nil || after == nil {
		return nil
	}
	growth := new(big.Rat).Quo(after, before)
	return growth.Sub(growth, big.NewRat(1, 1))
}

func formatRat(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	val := r.FloatString(ratioScale)
	return &val
}

func computeAPR(growth *big.Rat, windowSeconds uint64) *string {
	if growth == nil || windowSeconds == 0 {
		return nil
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(growth, yearSeconds)
	apr.Quo(apr, window)
	return formatRat(apr)
}

// Package fixedpoint holds the integer arithmetic used by pool settlement.
// Every function is pure and floating point is never used.
package fixedpoint

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrDivisionByZero     = errors.New("division by zero")
)

// IntegerSqrt returns floor(sqrt(n)). n is not modified.
func IntegerSqrt(n *uint256.Int) *uint256.Int {
	if n == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sqrt(n)
}

// SqrtProduct returns floor(sqrt(a*b)). The product is formed in 256 bits, so
// the root of two uint64 factors always fits back into a uint64.
func SqrtProduct(a, b uint64) uint64 {
	return IntegerSqrt(Product(a, b)).Uint64()
}

// Product returns the exact product a*b.
func Product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// MulDivFloor returns floor(a*b/c), widening the product before dividing.
func MulDivFloor(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	q := new(uint256.Int).Div(Product(a, b), uint256.NewInt(c))
	if !q.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return q.Uint64(), nil
}

// CheckedAdd returns a+b or ErrArithmeticOverflow when the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}

// CheckedSub returns a-b or ErrArithmeticOverflow when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

package common

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis point scale: 10 000 bps = 100%.
const BpsDenominator = 10_000

// PercentDenominator is the multiplier scale: 100 = 1.0x.
const PercentDenominator = 100

var (
	ErrOverflow     = errors.New("common: arithmetic overflow")
	ErrDivideByZero = errors.New("common: division by zero")
)

// MulDiv returns floor(x*y/d) computed with a 256-bit intermediate so the
// product never wraps. The quotient must fit in 64 bits.
func MulDiv(x, y, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	if x == 0 || y == 0 {
		return 0, nil
	}
	z, overflow := new(uint256.Int).MulDivOverflow(uint256.NewInt(x), uint256.NewInt(y), uint256.NewInt(d))
	if overflow || !z.IsUint64() {
		return 0, ErrOverflow
	}
	return z.Uint64(), nil
}

// BpsOf returns floor(amount*bps/10000). Rates above 100% are clamped so the
// result never exceeds amount.
func BpsOf(amount uint64, bps uint32) uint64 {
	if bps > BpsDenominator {
		bps = BpsDenominator
	}
	out, err := MulDiv(amount, uint64(bps), BpsDenominator)
	if err != nil {
		// bps <= denominator keeps the quotient <= amount.
		return amount
	}
	return out
}

// ApplyPercent scales amount by pct/100, truncating.
func ApplyPercent(amount uint64, pct uint32) (uint64, error) {
	return MulDiv(amount, uint64(pct), PercentDenominator)
}

// AddChecked adds two amounts, failing instead of wrapping.
func AddChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SubChecked subtracts b from a, failing instead of wrapping below zero.
func SubChecked(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// MinUint64 returns the smaller operand.
func MinUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

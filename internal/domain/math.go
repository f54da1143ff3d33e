package domain

import (
	"fmt"
	"math/bits"
)

// CheckedAdd returns a+b or ErrArithmeticFault on overflow
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrArithmeticFault, a, b)
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrArithmeticFault on underflow
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d underflows", ErrArithmeticFault, a, b)
	}
	return diff, nil
}

// MulDiv returns amount*numerator/denominator with truncation toward zero,
// using a 128-bit intermediate so the product cannot overflow.
// Denominator must be non-zero.
func MulDiv(amount, numerator, denominator uint64) uint64 {
	hi, lo := bits.Mul64(amount, numerator)
	quot, _ := bits.Div64(hi, lo, denominator)
	return quot
}

package sale

import (
	"math"
	"math/bits"

	"github.com/tokenlaunch/salecore/internal/config"
)

// MulDiv computes a*b/den through a 128-bit intermediate so the product may
// exceed 64 bits as long as the quotient fits. Fails closed instead of
// truncating: a quotient that does not fit in uint64 (or den == 0) returns
// ErrMultiplicationOverflow.
func MulDiv(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if den == 0 || hi >= den {
		return 0, config.ErrMultiplicationOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// CheckedAdd returns a+b or ErrValueTooLarge on wraparound.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, config.ErrValueTooLarge
	}
	return a + b, nil
}

// SatSub returns a-b, saturating at zero.
func SatSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// ApplyDiscount scales amount by (denom+bp)/denom.
func ApplyDiscount(amount uint64, bp uint16) (uint64, error) {
	return MulDiv(amount, config.BasisPointsDenom+uint64(bp), config.BasisPointsDenom)
}

// StripDiscount inverts ApplyDiscount, mapping a discounted weight back to the
// deposit amount that produced it.
func StripDiscount(weight uint64, bp uint16) (uint64, error) {
	return MulDiv(weight, config.BasisPointsDenom, config.BasisPointsDenom+uint64(bp))
}

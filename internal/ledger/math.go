package ledger

import (
	"math"
	"math/bits"
)

// bpsMax is the basis point denominator (100% = 10000).
const bpsMax = 10000

// checkedAdd returns a + b or ErrOverflow.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}

	return sum, nil
}

// checkedSub returns a - b or ErrOverflow when b > a.
func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}

	return diff, nil
}

// mulDiv returns floor(a * b / d) using a 128-bit intermediate product.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}

	hi, lo := bits.Mul64(a, b)

	// Quotient only fits in 64 bits when hi < d.
	if hi >= d {
		return 0, ErrOverflow
	}

	q, _ := bits.Div64(hi, lo, d)

	return q, nil
}

// addSeconds returns ts + d or ErrOverflow.
func addSeconds(ts, d int64) (int64, error) {
	if d > 0 && ts > math.MaxInt64-d {
		return 0, ErrOverflow
	}
	if d < 0 && ts < math.MinInt64-d {
		return 0, ErrOverflow
	}

	return ts + d, nil
}

// bpsRatio returns floor(num * 10000 / den) as a u32 counter, saturating
// at math.MaxUint32. den must be non-zero.
func bpsRatio(num, den uint64) uint32 {
	v, err := mulDiv(num, bpsMax, den)
	if err != nil || v > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(v)
}

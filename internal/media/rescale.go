package media

import (
	"fmt"
	"math"
	"math/bits"
)

// NoPTS marks an unknown timestamp. It matches libav's AV_NOPTS_VALUE.
const NoPTS int64 = math.MinInt64

// Rational is a fraction used for time bases and frame rates.
type Rational struct {
	Num int
	Den int
}

// Valid reports whether r can be used as a time base.
func (r Rational) Valid() bool { return r.Num > 0 && r.Den > 0 }

// Float64 returns r as a float, or 0 when the denominator is zero.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Rounding selects how a rescaled value is rounded. Values mirror libav's
// AVRounding so the two can be compared directly in logs.
type Rounding int

const (
	RoundZero    Rounding = 0 // Toward zero.
	RoundInf     Rounding = 1 // Away from zero.
	RoundDown    Rounding = 2 // Toward -inf.
	RoundUp      Rounding = 3 // Toward +inf.
	RoundNearInf Rounding = 5 // To nearest, halfway away from zero.

	// RoundPassMinMax passes math.MinInt64 (NoPTS) and math.MaxInt64
	// through unchanged. It is OR'ed with one of the modes above.
	RoundPassMinMax Rounding = 8192
)

// Rescale converts a from time base from to time base to, rounding to
// nearest. It is the equivalent of av_rescale_q.
func Rescale(a int64, from, to Rational) int64 {
	return RescaleRnd(a, from, to, RoundNearInf)
}

// RescaleTS rescales a timestamp with round-to-nearest and sentinel
// pass-through, the mode used for pts and dts.
func RescaleTS(a int64, from, to Rational) int64 {
	return RescaleRnd(a, from, to, RoundNearInf|RoundPassMinMax)
}

// RescaleRnd converts a from time base from to time base to with the given
// rounding. On overflow, or when either base is invalid, it returns
// math.MinInt64 like av_rescale_rnd.
func RescaleRnd(a int64, from, to Rational, rnd Rounding) int64 {
	b := int64(from.Num) * int64(to.Den)
	c := int64(to.Num) * int64(from.Den)
	return rescaleRnd(a, b, c, rnd)
}

// rescaleRnd computes a*b/c with 128-bit intermediates.
func rescaleRnd(a, b, c int64, rnd Rounding) int64 {
	if c <= 0 || b < 0 {
		return math.MinInt64
	}
	if rnd&RoundPassMinMax != 0 {
		if a == math.MinInt64 || a == math.MaxInt64 {
			return a
		}
		rnd &^= RoundPassMinMax
	}
	if a < 0 {
		if a == math.MinInt64 {
			a = -math.MaxInt64
		}
		// Flip Down/Up so rounding stays relative to the number line.
		return -rescaleRnd(-a, b, c, rnd^((rnd>>1)&1))
	}

	var r uint64
	switch rnd {
	case RoundNearInf:
		r = uint64(c / 2)
	case RoundInf, RoundUp:
		r = uint64(c - 1)
	}

	hi, lo := bits.Mul64(uint64(a), uint64(b))
	var carry uint64
	lo, carry = bits.Add64(lo, r, 0)
	hi += carry
	if hi >= uint64(c) {
		return math.MinInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return math.MinInt64
	}
	return int64(q)
}

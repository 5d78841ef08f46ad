// Package cnr converts the demodulator's raw carrier-to-noise counters to
// decibels. Values are fixed point, dB x 10000, and never negative.
package cnr

import (
	"math/bits"

	"github.com/herlein/isdbtune/pkg/fixedpoint"
	"github.com/herlein/isdbtune/pkg/isdb"
)

// Scale is the fixed-point unit of a quality value
const Scale = 10000

// SatelliteOffset is the noise floor of the satellite counter
const SatelliteOffset = 3000

// SatelliteMax is the largest value of the 16-bit satellite counter
const SatelliteMax = 0xFFFF

// mulShift returns (a*b)>>s rounded toward negative infinity, computed on
// the full 128-bit product. The result must fit in 64 bits.
func mulShift(a, b int64, s uint) int64 {
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(abs(a), abs(b))
	q := hi<<(64-s) | lo>>s
	if !neg {
		return int64(q)
	}
	if lo&(1<<s-1) != 0 {
		q++
	}
	return -int64(q)
}

func abs(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// Satellite evaluates the satellite curve, a fifth order polynomial in the
// square root of the offset counter. Counters above SatelliteMax are
// clamped to it.
func Satellite(raw uint32) int64 {
	if raw > SatelliteMax {
		raw = SatelliteMax
	}
	if raw < SatelliteOffset {
		return 0
	}
	x := int64(fixedpoint.Sqrt(uint64(raw-SatelliteOffset) << 20))
	y := 16346*x - 143410<<16
	y = mulShift(x, y, 16) + 502590<<16
	y = mulShift(x, y, 16) - 889770<<16
	y = mulShift(x, y, 16) + 895650<<16
	y = 588570<<16 - mulShift(x, y, 16)
	if y < 0 {
		return 0
	}
	return y >> 16
}

// Terrestrial evaluates the terrestrial curve, a polynomial in log10 of the
// counter. A zero counter means no measurement.
func Terrestrial(raw uint32) int64 {
	if raw == 0 {
		return 0
	}
	x := (1130911733 - 10*int64(fixedpoint.Log10(raw))) >> 2
	y := x>>2 - x>>6 + x>>8 + x>>9 - x>>10 + x>>11 + x>>12 - 16<<22
	y = mulShift(x, y, 22) + 398<<22
	y = mulShift(x, y, 22) + 5491<<22
	y = mulShift(x, y, 22) + 30965<<22
	if y < 0 {
		return 0
	}
	return y >> 22
}

// Estimate applies the curve of sys
func Estimate(sys isdb.DeliverySystem, raw uint32) int64 {
	if sys == isdb.Satellite {
		return Satellite(raw)
	}
	return Terrestrial(raw)
}

// DB converts a quality value to decibels for display
func DB(q int64) float64 {
	return float64(q) / Scale
}

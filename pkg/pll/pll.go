// Package pll computes the fractional-N synthesizer settings of the TDA2014x
// local oscillator for a satellite frequency.
package pll

import (
	"errors"
	"fmt"

	"github.com/herlein/isdbtune/pkg/fixedpoint"
)

// ErrRange is returned when no divider configuration reaches the frequency
var ErrRange = errors.New("frequency outside PLL divider range")

// Synthesizer constants
const (
	XtalMHz = 27 // reference crystal

	MinDivider = 131
	MaxDivider = 251

	fracBits  = 0x0FFFFFFF // fraction register headroom during scaling
	fracSteps = 16
	fracPow   = 6 // fraction starts in millionths
)

// Band breakpoints in kHz, inclusive upper bounds of bands 0-3
var bandLimits = [...]uint32{1075000, 1228000, 1433000, 1720000}

// NumBands is the number of LO bands
const NumBands = len(bandLimits) + 1

// BandIndex returns the LO band of a satellite frequency
func BandIndex(kHz uint32) int {
	for i, max := range bandLimits {
		if kHz <= max {
			return i
		}
	}
	return len(bandLimits)
}

// candidate is a reference ratio and a right shift applied to the divider
type candidate struct {
	ratio uint64
	shift uint
}

// Tried in order; the first whose divider lands in range wins
var candidates = [...]candidate{
	{1, 1},
	{1, 0},
	{3, 2},
	{3, 1},
	{1, 2},
}

// Config is a complete synthesizer setting
type Config struct {
	Band        int
	Ratio       uint8  // reference ratio R, 1 or 3
	Shift       uint8  // divider shift applied after R
	RefClkRatio uint8  // register encoding of R
	Predivider  uint8  // register encoding of Shift
	Divider     uint32 // coarse divider, in [MinDivider, MaxDivider]
	IntDivider  uint32 // integer part of N
	// FracNumerator is the doubled and decimated fraction; the register
	// value is FracNumerator / 10^FracShift.
	FracNumerator uint64
	FracShift     uint
}

// RatioPercent is the scale applied to the reference value, in percent
func (c Config) RatioPercent() uint32 {
	return (100 * uint32(c.Ratio)) >> c.Shift
}

// IntRegister is the value of the integer divider register
func (c Config) IntRegister() uint8 {
	return uint8(c.IntDivider - 128)
}

// FracRegister is the value of the 16-bit fraction register pair
func (c Config) FracRegister() uint16 {
	return uint16(fixedpoint.Div10(c.FracNumerator, c.FracShift))
}

func (c Config) String() string {
	return fmt.Sprintf("band=%d R=%d shift=%d N=%d+0x%04X/65536", c.Band, c.Ratio, c.Shift, c.IntDivider, c.FracRegister())
}

// scale applies an exact ratio percentage to the reference value
func scale(res uint64, percent uint32) (uint64, bool) {
	switch percent {
	case 25:
		return res / 4, true
	case 50:
		return res / 2, true
	case 75:
		return res/2 + res/4, true
	case 100:
		return res, true
	case 150:
		return res/2 + res, true
	}
	return 0, false
}

// Synthesize computes the divider configuration for kHz in band
func Synthesize(kHz uint32, band int) (Config, error) {
	if band < 0 || band >= NumBands {
		return Config{}, fmt.Errorf("%w: band %d", ErrRange, band)
	}
	res := uint64(8-band) * uint64(kHz) * 1000 / XtalMHz
	v15 := fixedpoint.Div10(res, 6)

	cfg := Config{Band: band}
	found := false
	for _, c := range candidates {
		n := (v15 * c.ratio) >> c.shift
		if n >= MinDivider && n <= MaxDivider {
			cfg.Ratio, cfg.Shift, cfg.Divider = uint8(c.ratio), uint8(c.shift), uint32(n)
			found = true
			break
		}
	}
	if !found {
		return Config{}, fmt.Errorf("%w: %d kHz", ErrRange, kHz)
	}

	kint, ok := scale(res, cfg.RatioPercent())
	if !ok {
		return Config{}, fmt.Errorf("%w: ratio %d%%", ErrRange, cfg.RatioPercent())
	}
	kint = fixedpoint.Div10(kint, 1) * 10

	switch cfg.Ratio {
	case 2:
		cfg.RefClkRatio = 1
	case 3:
		cfg.RefClkRatio = 2
	}
	if cfg.Shift != 1 {
		cfg.Predivider = 1
	}

	nint := fixedpoint.Div10(kint, fracPow)
	frac := kint - 1000000*nint
	pow := uint(fracPow)
	for i := 0; i < fracSteps; i++ {
		frac *= 2
		if frac > fracBits && i != fracSteps-1 {
			frac = fixedpoint.Div10(frac, 1)
			pow--
		}
	}
	cfg.IntDivider = uint32(nint)
	cfg.FracNumerator = frac
	cfg.FracShift = pow
	return cfg, nil
}

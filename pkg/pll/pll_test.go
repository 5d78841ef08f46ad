package pll

import (
	"errors"
	"testing"

	"github.com/herlein/isdbtune/pkg/fixedpoint"
)

func TestBandIndex(t *testing.T) {
	tests := []struct {
		kHz  uint32
		want int
	}{
		{950000, 0},
		{1075000, 0},
		{1075001, 1},
		{1228000, 1},
		{1228001, 2},
		{1433000, 2},
		{1433001, 3},
		{1720000, 3},
		{1720001, 4},
		{3224000, 4},
	}
	for _, tt := range tests {
		if got := BandIndex(tt.kHz); got != tt.want {
			t.Errorf("BandIndex(%d) = %d, want %d", tt.kHz, got, tt.want)
		}
	}
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		kHz       uint32
		band      int
		ratio     uint8
		shift     uint8
		percent   uint32
		divider   uint32
		frac      uint64
		fracShift uint
		fracReg   uint16
	}{
		{1318000, 2, 1, 1, 50, 146, 291268192, 4, 29126},
		{1049480, 0, 1, 1, 50, 155, 313596312, 4, 31359},
		{1202920, 1, 1, 1, 50, 155, 61215210, 3, 61215},
		{1722000, 4, 3, 2, 75, 191, 218451144, 4, 21845},
		{2071000, 4, 1, 1, 50, 153, 266993664, 4, 26699},
		{3224000, 4, 1, 1, 50, 238, 533993872, 4, 53399},
		{337500, 0, 3, 1, 150, 150, 0, 6, 0},
		{3600000, 4, 1, 2, 25, 133, 218451144, 4, 21845},
	}
	for _, tt := range tests {
		cfg, err := Synthesize(tt.kHz, tt.band)
		if err != nil {
			t.Errorf("Synthesize(%d, %d): %v", tt.kHz, tt.band, err)
			continue
		}
		if cfg.Ratio != tt.ratio || cfg.Shift != tt.shift || cfg.RatioPercent() != tt.percent {
			t.Errorf("%d: R=%d shift=%d pct=%d, want R=%d shift=%d pct=%d",
				tt.kHz, cfg.Ratio, cfg.Shift, cfg.RatioPercent(), tt.ratio, tt.shift, tt.percent)
		}
		if cfg.Divider != tt.divider || cfg.IntDivider != tt.divider {
			t.Errorf("%d: divider %d int %d, want %d", tt.kHz, cfg.Divider, cfg.IntDivider, tt.divider)
		}
		if cfg.FracNumerator != tt.frac || cfg.FracShift != tt.fracShift {
			t.Errorf("%d: frac %d/10^%d, want %d/10^%d", tt.kHz, cfg.FracNumerator, cfg.FracShift, tt.frac, tt.fracShift)
		}
		if got := cfg.FracRegister(); got != tt.fracReg {
			t.Errorf("%d: FracRegister = %d, want %d", tt.kHz, got, tt.fracReg)
		}
	}
}

func TestSynthesizeRegisterEncoding(t *testing.T) {
	cfg, err := Synthesize(1318000, 2)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefClkRatio != 0 || cfg.Predivider != 0 || cfg.IntRegister() != 18 {
		t.Errorf("R=1 shift=1: refclk=%d prediv=%d int=%d", cfg.RefClkRatio, cfg.Predivider, cfg.IntRegister())
	}

	cfg, err = Synthesize(1722000, 4)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefClkRatio != 2 || cfg.Predivider != 1 || cfg.IntRegister() != 63 {
		t.Errorf("R=3 shift=2: refclk=%d prediv=%d int=%d", cfg.RefClkRatio, cfg.Predivider, cfg.IntRegister())
	}
}

func TestSynthesizeRange(t *testing.T) {
	for _, tt := range []struct {
		kHz  uint32
		band int
	}{
		{100000, 0},
		{0, 0},
		{1318000, -1},
		{1318000, NumBands},
	} {
		if _, err := Synthesize(tt.kHz, tt.band); !errors.Is(err, ErrRange) {
			t.Errorf("Synthesize(%d, %d) err = %v, want ErrRange", tt.kHz, tt.band, err)
		}
	}
}

func TestSynthesizeSatelliteBand(t *testing.T) {
	for kHz := uint32(1049480); kHz <= 3224000; kHz += 997 {
		band := BandIndex(kHz)
		cfg, err := Synthesize(kHz, band)
		if err != nil {
			t.Fatalf("Synthesize(%d): %v", kHz, err)
		}
		if cfg.Divider < MinDivider || cfg.Divider > MaxDivider {
			t.Fatalf("%d: divider %d out of range", kHz, cfg.Divider)
		}

		// The fraction register must be the scaled-down fraction of N
		res := uint64(8-band) * uint64(kHz) * 1000 / XtalMHz
		kint, _ := scale(res, cfg.RatioPercent())
		kint = kint / 10 * 10
		frac0 := kint - 1000000*uint64(cfg.IntDivider)
		if frac0 >= 1000000 {
			t.Fatalf("%d: integer part %d inconsistent with %d", kHz, cfg.IntDivider, kint)
		}
		want := frac0 * 65536 / 1000000
		got := uint64(cfg.FracRegister())
		if got+1 < want || got > want+1 {
			t.Fatalf("%d: fraction register %d, want %d", kHz, got, want)
		}
		if cfg.FracShift > fracPow || fixedpoint.Div10(cfg.FracNumerator, cfg.FracShift) > 0xFFFF {
			t.Fatalf("%d: fraction scale %d/10^%d", kHz, cfg.FracNumerator, cfg.FracShift)
		}
	}
}

package fixedpoint

import (
	"math"
	"math/rand"
	"testing"
)

func TestDiv10MatchesDivision(t *testing.T) {
	for n := uint64(0); n < 100000; n++ {
		if got := Div10(n, 1); got != n/10 {
			t.Fatalf("Div10(%d, 1) = %d, want %d", n, got, n/10)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100000; i++ {
		n := rng.Uint64()
		if got := Div10(n, 1); got != n/10 {
			t.Fatalf("Div10(%d, 1) = %d, want %d", n, got, n/10)
		}
	}

	if got := Div10(math.MaxUint64, 1); got != math.MaxUint64/10 {
		t.Errorf("Div10(MaxUint64, 1) = %d", got)
	}
}

func TestDiv10Powers(t *testing.T) {
	tests := []struct {
		n    uint64
		pow  uint
		want uint64
	}{
		{292888888, 6, 292},
		{291268192, 4, 29126},
		{123, 0, 123},
		{999999, 6, 0},
		{1000000, 6, 1},
	}
	for _, tt := range tests {
		if got := Div10(tt.n, tt.pow); got != tt.want {
			t.Errorf("Div10(%d, %d) = %d, want %d", tt.n, tt.pow, got, tt.want)
		}
	}
}

func TestSqrt(t *testing.T) {
	for x := uint64(0); x < 70000; x++ {
		y := Sqrt(x)
		if y*y > x || (y+1)*(y+1) <= x {
			t.Fatalf("Sqrt(%d) = %d", x, y)
		}
	}
	// largest argument used by the satellite curve
	x := uint64(65535-3000) << 20
	y := Sqrt(x)
	if y*y > x || (y+1)*(y+1) <= x {
		t.Errorf("Sqrt(%d) = %d", x, y)
	}
}

func TestLog2(t *testing.T) {
	if got := Log2(0); got != 0 {
		t.Errorf("Log2(0) = %d, want 0", got)
	}
	if got := Log2(1); got != 0 {
		t.Errorf("Log2(1) = %d, want 0", got)
	}
	for shift := uint(0); shift < 32; shift++ {
		v := uint32(1) << shift
		if got := Log2(v); got != uint32(shift)<<24 {
			t.Errorf("Log2(1<<%d) = %d, want %d", shift, got, uint32(shift)<<24)
		}
	}
}

func TestLog10(t *testing.T) {
	tests := []struct {
		v    uint32
		want uint32
	}{
		{0, 0},
		{1, 0},
		{2, 5050445},
		{10, 16777225},
		{100, 33554450},
		{1000000, 100663296},
	}
	for _, tt := range tests {
		if got := Log10(tt.v); got != tt.want {
			t.Errorf("Log10(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}

	// stay within a small fraction of a dB of the real logarithm
	for _, v := range []uint32{3, 7, 55, 999, 4096, 12345, 777777, 16777215} {
		got := float64(Log10(v)) / (1 << 24)
		want := math.Log10(float64(v))
		if math.Abs(got-want) > 1e-4 {
			t.Errorf("Log10(%d) = %f, want %f", v, got, want)
		}
	}
}

func TestBytesToUint(t *testing.T) {
	tests := []struct {
		data []byte
		n    int
		want uint64
	}{
		{[]byte{0x12, 0x34}, 2, 0x1234},
		{[]byte{0x00, 0x00, 0x01}, 3, 1},
		{[]byte{0xAB, 0xCD, 0xEF}, 3, 0xABCDEF},
		{[]byte{0x01, 0x02, 0x03, 0x04, 0x05}, 5, 0x0102030405},
		{[]byte{0x12, 0x34}, 1, 0x12},
		{[]byte{0x12}, 4, 0x12},
		{nil, 2, 0},
	}
	for _, tt := range tests {
		if got := BytesToUint(tt.data, tt.n); got != tt.want {
			t.Errorf("BytesToUint(% X, %d) = 0x%X, want 0x%X", tt.data, tt.n, got, tt.want)
		}
	}
}

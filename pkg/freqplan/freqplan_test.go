package freqplan

import (
	"testing"

	"github.com/herlein/isdbtune/pkg/isdb"
)

func TestResolveTerrestrial(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, 557142857},           // sentinel -> NHK
		{1, 93142857},            // VHF 1
		{3, 105142857},           // VHF 3
		{4, 173142857},           // VHF 4
		{12, 219142857},          // VHF 12
		{13, 473142857},          // UHF 13
		{27, 557142857},          // UHF 27
		{62, 767142857},          // UHF 62
		{63, 557142857},          // gap
		{64 + 12, 557142857},     // CATV below C13
		{64 + 13, 111142857},     // C13
		{64 + 22, 167142857},     // C22
		{64 + 23, 225142857},     // C23
		{127, 465142857},         // C63
		{128, 93142857},          // channel index 0
		{128 + 63, 473142857},    // channel index 63
		{255, 557142857},         // channel index above 112
		{256, 557142857},         // garbage
		{89999999, 557142857},    // just below a real frequency
		{90000000, 90000000},     // lowest real frequency
		{515142857, 515142857},   // real frequency
		{^uint32(0), ^uint32(0)}, // largest value
	}
	for _, tt := range tests {
		if got := Resolve(isdb.Terrestrial, tt.in); got != tt.want {
			t.Errorf("Resolve(T, %d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResolveSatellite(t *testing.T) {
	bs9 := uint32(1202920)
	tests := []struct {
		in, want uint32
	}{
		{0, bs9},
		{1, 1049480},
		{5, bs9},
		{12, 1471440},
		{13, 1068660},
		{24, 1613000},
		{36, 1553000},
		{50, 2113000},
		{51, bs9},
		{1049479, bs9},
		{1049480, 1049480},
		{1318000, 1318000},
		{3224000, 3224000},
		{3224001, 1145380},
		{^uint32(0), 1145380},
	}
	for _, tt := range tests {
		if got := Resolve(isdb.Satellite, tt.in); got != tt.want {
			t.Errorf("Resolve(S, %d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestChannelsInBand(t *testing.T) {
	for _, v := range Channels(isdb.Terrestrial) {
		if hz := Resolve(isdb.Terrestrial, v); hz < MinTerrestrialHz {
			t.Errorf("terrestrial channel %d -> %d Hz, below band", v, hz)
		}
	}
	for _, v := range Channels(isdb.Satellite) {
		khz := Resolve(isdb.Satellite, v)
		if khz < MinSatelliteKHz || khz > MaxSatelliteKHz {
			t.Errorf("satellite channel %d -> %d kHz, out of band", v, khz)
		}
	}
	if n := len(Channels(isdb.Satellite)); n != 50 {
		t.Errorf("%d satellite channels", n)
	}
	if n := len(Channels(isdb.Terrestrial)); n != 62 {
		t.Errorf("%d terrestrial channels", n)
	}
}

func TestResolveIdempotent(t *testing.T) {
	for _, hz := range []uint32{90000000, 473142857, 767142857, 2000000000} {
		if got := Resolve(isdb.Terrestrial, Resolve(isdb.Terrestrial, hz)); got != hz {
			t.Errorf("terrestrial %d -> %d", hz, got)
		}
	}
	for khz := uint32(MinSatelliteKHz); khz <= MaxSatelliteKHz; khz += 12345 {
		if got := Resolve(isdb.Satellite, khz); got != khz {
			t.Errorf("satellite %d -> %d", khz, got)
		}
	}
}

func TestRulesOrdered(t *testing.T) {
	for _, sys := range []isdb.DeliverySystem{isdb.Terrestrial, isdb.Satellite} {
		rules := Rules(sys)
		for i := 1; i < len(rules); i++ {
			if rules[i].Max <= rules[i-1].Max {
				t.Errorf("%s rule %d (%s) not above rule %d", sys, i, rules[i].Name, i-1)
			}
		}
		if rules[len(rules)-1].Max != ^uint32(0) {
			t.Errorf("%s table does not cover every value", sys)
		}
	}
}

func TestMatchBreakpoints(t *testing.T) {
	tests := []struct {
		v    uint32
		want string
	}{
		{0, "sentinel"},
		{1, "VHF 1-3"},
		{4, "VHF 4-12"},
		{13, "UHF 13-62"},
		{63, "invalid"},
		{64, "CATV"},
		{128, "channel index"},
		{256, "invalid"},
		{MinTerrestrialHz, "frequency"},
	}
	for _, tt := range tests {
		if got := Match(TerrestrialRules, tt.v).Name; got != tt.want {
			t.Errorf("Match(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

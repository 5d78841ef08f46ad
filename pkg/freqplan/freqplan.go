// Package freqplan resolves tune request values into physical carrier
// frequencies. A request value may already be a frequency, or it may be a
// channel code; each delivery system has an ordered rule table mapping code
// ranges to channels. Resolution never fails: unrecognised values land on a
// fixed fallback channel.
package freqplan

import "github.com/herlein/isdbtune/pkg/isdb"

// Rule maps every value up to and including Max. Rules are evaluated in
// order and the first one whose Max is not below the value applies.
type Rule struct {
	Max  uint32
	Name string
	Map  func(v uint32) uint32
}

// Terrestrial plan
const (
	MinTerrestrialHz = 90000000 // values at or above are frequencies
	NHKChannel       = 77       // fallback channel index (UHF 27)
	terrestrialFrac  = 142857   // 1/7 MHz carrier offset
)

// Satellite plan
const (
	MinSatelliteKHz     = 1049480 // BS1, values at or above are frequencies
	MaxSatelliteKHz     = 3224000 // values above clamp to MaxChannel
	DefaultSatChannel   = 4       // BS9, used for sentinels and garbage
	MaxSatChannel       = 14      // BS left even 14
	SatelliteChannelMax = 50      // highest logical channel number
)

// TerrestrialChannelHz converts a terrestrial channel index to Hz. Indices
// 0-11 are VHF 1-12, 12-16 mid-band CATV, 17-62 and up UHF/CATV; anything
// above 112 is pinned to 557 MHz.
func TerrestrialChannelHz(fno uint32) uint32 {
	var mhz uint32
	switch {
	case fno > 112:
		mhz = 557
	case fno < 12:
		mhz = 93 + 6*fno
	case fno < 17:
		mhz = 93 + 6*fno + 2
	case fno < 63:
		mhz = 93 + 6*fno
	default:
		mhz = 93 + 6*fno + 2
	}
	return mhz*1000000 + terrestrialFrac
}

// SatelliteChannelKHz converts a satellite channel index to kHz
func SatelliteChannelKHz(fno uint32) uint32 {
	switch {
	case fno < 12: // BS right, odd
		return 1049480 + 38360*fno
	case fno < 23: // BS left, even
		return 1068660 + 38360*(fno-12)
	case fno < 35: // CS110 right, even
		return 1613000 + 40000*(fno-23)
	default: // CS110 left, odd
		return 1553000 + 40000*(fno-35)
	}
}

func nhk(uint32) uint32 { return TerrestrialChannelHz(NHKChannel) }

func identity(v uint32) uint32 { return v }

func shifted(delta int32) func(uint32) uint32 {
	return func(v uint32) uint32 { return TerrestrialChannelHz(uint32(int32(v) + delta)) }
}

func catv(v uint32) uint32 {
	ch := v - 64
	switch {
	case ch > 22: // C23-C63
		return TerrestrialChannelHz(ch - 1)
	case ch > 12: // C13-C22
		return TerrestrialChannelHz(ch - 10)
	default:
		return nhk(v)
	}
}

// TerrestrialRules is the terrestrial (Hz) rule table
var TerrestrialRules = []Rule{
	{0, "sentinel", nhk},
	{3, "VHF 1-3", shifted(-1)},
	{12, "VHF 4-12", shifted(9)},
	{62, "UHF 13-62", shifted(50)},
	{63, "invalid", nhk},
	{127, "CATV", catv},
	{255, "channel index", shifted(-128)},
	{MinTerrestrialHz - 1, "invalid", nhk},
	{^uint32(0), "frequency", identity},
}

func satDefault(uint32) uint32 { return SatelliteChannelKHz(DefaultSatChannel) }

// SatelliteRules is the satellite (kHz) rule table. BS channels are 1-25,
// CS110 channels 26-50.
var SatelliteRules = []Rule{
	{0, "sentinel", satDefault},
	{SatelliteChannelMax, "channel", func(v uint32) uint32 { return SatelliteChannelKHz(v - 1) }},
	{MinSatelliteKHz - 1, "invalid", satDefault},
	{MaxSatelliteKHz, "frequency", identity},
	{^uint32(0), "above band", func(uint32) uint32 { return SatelliteChannelKHz(MaxSatChannel) }},
}

// Rules returns the rule table of a delivery system
func Rules(sys isdb.DeliverySystem) []Rule {
	if sys == isdb.Satellite {
		return SatelliteRules
	}
	return TerrestrialRules
}

// Match returns the first rule of rules covering v
func Match(rules []Rule, v uint32) Rule {
	for _, r := range rules {
		if v <= r.Max {
			return r
		}
	}
	return rules[len(rules)-1]
}

// Resolve maps a request value to Hz (terrestrial) or kHz (satellite)
func Resolve(sys isdb.DeliverySystem, v uint32) uint32 {
	return Match(Rules(sys), v).Map(v)
}

// Channels returns the request values of every logical channel of a delivery
// system, as accepted by Resolve
func Channels(sys isdb.DeliverySystem) []uint32 {
	var out []uint32
	if sys == isdb.Satellite {
		for v := uint32(1); v <= SatelliteChannelMax; v++ {
			out = append(out, v)
		}
		return out
	}
	for v := uint32(1); v <= 62; v++ {
		out = append(out, v)
	}
	return out
}

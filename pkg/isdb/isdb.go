// Package isdb holds the types shared by every stage of a tune: the delivery
// system selector and the tune request handed in by callers.
package isdb

import (
	"fmt"
	"strings"
)

// DeliverySystem selects the frequency plan, lock conditions and CNR curve
type DeliverySystem uint8

const (
	Terrestrial DeliverySystem = iota // ISDB-T, frequencies in Hz
	Satellite                         // ISDB-S (BS/CS110), frequencies in kHz
)

// String returns the conventional name of the delivery system
func (s DeliverySystem) String() string {
	switch s {
	case Terrestrial:
		return "ISDB-T"
	case Satellite:
		return "ISDB-S"
	default:
		return fmt.Sprintf("DeliverySystem(%d)", uint8(s))
	}
}

// Unit returns the frequency unit used by the delivery system
func (s DeliverySystem) Unit() string {
	if s == Satellite {
		return "kHz"
	}
	return "Hz"
}

// ParseDeliverySystem accepts "t", "isdb-t", "terrestrial", "s", "isdb-s" or "satellite"
func ParseDeliverySystem(s string) (DeliverySystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "isdb-t", "isdbt", "terrestrial":
		return Terrestrial, nil
	case "s", "isdb-s", "isdbs", "satellite", "bs", "cs":
		return Satellite, nil
	default:
		return 0, fmt.Errorf("unknown delivery system %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so configs can say "isdb-s"
func (s DeliverySystem) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *DeliverySystem) UnmarshalText(text []byte) error {
	v, err := ParseDeliverySystem(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// TuneRequest is a single tune call. Frequency is either a physical
// frequency or a channel code, see package freqplan.
type TuneRequest struct {
	System    DeliverySystem
	Frequency uint32
	// StreamID selects the satellite multiplex, either a transport stream ID
	// or a slot index (0-7).
	StreamID uint16
	// Retune gates whether the hardware is touched at all.
	Retune bool
}

func (r TuneRequest) String() string {
	return fmt.Sprintf("%s %d%s stream=0x%04X", r.System, r.Frequency, r.System.Unit(), r.StreamID)
}

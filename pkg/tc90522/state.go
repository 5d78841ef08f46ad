package tc90522

import (
	"fmt"

	"github.com/herlein/isdbtune/pkg/isdb"
)

// State is the acquisition state of a demodulator
type State int

const (
	Idle     State = iota // no tune attempted, or the last one was cancelled
	Polling               // waiting for lock
	Locked                // lock conditions met
	TimedOut              // poll budget exhausted
	Failed                // bus, tuner or retry overflow failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Locked:
		return "locked"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LockStatus is the lock state reported to callers. Signal, Carrier and
// Lock are set together once acquisition succeeds; the remaining fields are
// the per-system conditions seen on the most recent poll.
type LockStatus struct {
	Signal  bool `json:"signal" yaml:"signal"`
	Carrier bool `json:"carrier" yaml:"carrier"`
	Lock    bool `json:"lock" yaml:"lock"`

	// terrestrial
	Lock0         bool `json:"lock0,omitempty" yaml:"lock0,omitempty"`
	Lock1         bool `json:"lock1,omitempty" yaml:"lock1,omitempty"`
	RetryOverflow bool `json:"retry_overflow,omitempty" yaml:"retry_overflow,omitempty"`

	// satellite
	CarrierLock bool   `json:"carrier_lock,omitempty" yaml:"carrier_lock,omitempty"`
	ValidTSID   bool   `json:"valid_tsid,omitempty" yaml:"valid_tsid,omitempty"`
	MatchedTSID bool   `json:"matched_tsid,omitempty" yaml:"matched_tsid,omitempty"`
	TSID        uint16 `json:"tsid,omitempty" yaml:"tsid,omitempty"`
}

func (l LockStatus) String() string {
	return fmt.Sprintf("signal=%t carrier=%t lock=%t", l.Signal, l.Carrier, l.Lock)
}

// Outcome describes a finished tune
type Outcome struct {
	State      State
	System     isdb.DeliverySystem
	Frequency  uint32 // resolved frequency, Hz or kHz
	Iterations int    // polls performed
	TSID       uint16 // selected stream, satellite only
}

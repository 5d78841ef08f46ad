package scanner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/herlein/isdbtune/pkg/freqplan"
	"github.com/herlein/isdbtune/pkg/isdb"
)

// Config defines a channel scan
type Config struct {
	System isdb.DeliverySystem
	// Channels are frequencies or channel codes, see package freqplan
	Channels []uint32
	// StreamID selects the satellite stream on every channel
	StreamID       uint16
	Samples        int           // CNR reads per locked channel
	SampleInterval time.Duration // pause between CNR reads

	// OnChannel is called after each channel (optional)
	OnChannel func(Result)
	Logger    *slog.Logger
}

// DefaultConfig returns a scan of every channel of sys
func DefaultConfig(sys isdb.DeliverySystem) *Config {
	return &Config{
		System:         sys,
		Channels:       freqplan.Channels(sys),
		Samples:        DefaultSamples,
		SampleInterval: DefaultSampleInterval,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return ErrNoChannels
	}
	if c.Samples < 1 || c.Samples > MaxSamples {
		return fmt.Errorf("%w: samples must be between 1 and %d", ErrInvalidConfig, MaxSamples)
	}
	if c.SampleInterval < 0 {
		return fmt.Errorf("%w: negative sample interval", ErrInvalidConfig)
	}
	if c.System != isdb.Terrestrial && c.System != isdb.Satellite {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.System)
	}
	return nil
}

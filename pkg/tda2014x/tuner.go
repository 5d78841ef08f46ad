// Package tda2014x programs the NXP TDA2014x ISDB-S tuner. The tuner sits
// behind the TC90522 gateway; every register access goes through a
// bus.Device tagged bus.Tuner, while a few companion registers of the
// demodulator are written around each tune.
package tda2014x

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/pll"
	"github.com/herlein/isdbtune/pkg/profiles"
	"github.com/herlein/isdbtune/pkg/registers"
)

// InitialKHz is the frequency tuned at the end of Init
const InitialKHz = 1318000

// Done-bit polling budgets
const (
	vcoCalPolls      = 3
	channelDonePolls = 2
)

// Options configures a Tuner
type Options struct {
	// Gain applied on every tune, DefaultGain when zero
	Gain   *profiles.Gain
	Logger *slog.Logger
}

// Tuner is one TDA2014x. Calls are serialised.
type Tuner struct {
	mu     sync.Mutex
	dev    *bus.Device
	gain   profiles.Gain
	logger *slog.Logger
	last   pll.Config
}

// New returns a Tuner on dev. dev must be tagged bus.Tuner.
func New(dev *bus.Device, opts Options) *Tuner {
	t := &Tuner{
		dev:    dev,
		gain:   profiles.DefaultGain,
		logger: opts.Logger,
	}
	if opts.Gain != nil {
		t.gain = *opts.Gain
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// SetGain changes the gain applied from the next tune on
func (t *Tuner) SetGain(g profiles.Gain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gain = g
}

// Last returns the most recently programmed PLL configuration
func (t *Tuner) Last() pll.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Init brings the tuner out of reset: clears, power mode, PLL and VCO
// power-on sequences, loop-through enable, then a tune to InitialKHz
func (t *Tuner) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.powerUp(); err != nil {
		return err
	}
	t.logger.Debug("tuner initialised", "device", t.dev.String())
	return t.SetFrequency(ctx, isdb.Satellite, InitialKHz)
}

func (t *Tuner) powerUp() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &seq{dev: t.dev}
	for _, reg := range []uint8{0x13, 0x15, 0x17, 0x1C, 0x1D, 0x1F} {
		s.host(reg, 0)
	}
	s.host(0x07, 0x31)
	s.host(0x08, 0x77)
	s.host(0x04, 0x02)
	if s.err != nil {
		return fmt.Errorf("failed to reset tuner: %w", s.err)
	}

	setPowerMode(s)
	programPllPor(s)
	if s.err != nil {
		return fmt.Errorf("failed to power up tuner: %w", s.err)
	}
	programVcoPor(s)
	if s.err != nil {
		return fmt.Errorf("failed to calibrate VCO: %w", s.err)
	}

	// loop-through on
	s.update(registers.RegGainCtl, func(v uint8) uint8 { return v&0xF7 | 0x08 })
	if s.err != nil {
		return fmt.Errorf("failed to enable loop-through: %w", s.err)
	}
	return nil
}

func setPowerMode(s *seq) {
	s.update(registers.RegPowerState, func(v uint8) uint8 { return v | 0x81 })
	s.update(registers.RegGainCtl, func(v uint8) uint8 { return (v | 0x39) & 0x7F })
	s.update(registers.RegBias0, func(v uint8) uint8 { return v | 0xAE })
	s.update(registers.RegVcoCal, func(v uint8) uint8 { return v | 0x80 })
	s.update(registers.RegPllPor, func(v uint8) uint8 { return v & 0x7F })
	s.update(registers.RegPllCfg, func(v uint8) uint8 { return v | 0xC0 })
	s.write(registers.RegLoConfig, 0xFF)
	s.update(registers.RegLoDivider, func(v uint8) uint8 { return v & 0xFE })
	s.update(registers.RegLoInput, func(v uint8) uint8 { return v | 0x08 })
	s.update(registers.RegLoBuffer, func(v uint8) uint8 { return (v | 0xC0) & 0xDF })
	s.update(registers.RegLoPath, func(v uint8) uint8 { return (v | 0x04) & 0xCF })
	s.update(registers.RegVcoBias, func(v uint8) uint8 { return v & 0xDF })
	s.update(registers.RegAmpCtl, func(v uint8) uint8 { return (v | 0xB0) & 0xB1 })
	s.update(registers.RegFilterBW, func(v uint8) uint8 { return (v | 0x6F) & 0x7F })
	s.update(registers.RegFilterTrim, func(v uint8) uint8 { return (v | 0x7A) & 0x7B })
	s.write(registers.RegAmpOut, 0)
	s.write(registers.RegPllBias, 0xFA)
	s.update(registers.RegPllPor2, func(v uint8) uint8 { return v & 0x7F })
	s.update(registers.RegLoMisc, func(v uint8) uint8 { return v | 0x40 })
	s.update(registers.RegVcoCtl, func(v uint8) uint8 { return (v | 0x90) & 0xBF })
	s.update(registers.RegVcoCtl2, func(v uint8) uint8 { return (v | 0x20) & 0xEF })
}

func programPllPor(s *seq) {
	s.field(registers.RegPllCfg, 6, 1, 1)
	s.field(registers.RegPllPor, 0, 1, 1)
	s.field(registers.RegPllPor, 7, 1, 1)
	s.field(registers.RegPllPor2, 7, 1, 1)
	s.field(registers.RegPllPor, 0, 1, 0)
}

func programVcoPor(s *seq) {
	s.update(registers.RegVcoCal, func(v uint8) uint8 { return v&0x1F | 0x80 })
	s.update(registers.RegChanChange, func(v uint8) uint8 { return v&0xCF | 0x20 })
	s.update(registers.RegPllCtl, func(v uint8) uint8 { return v | 0xC0 })
	s.field(registers.RegVcoCtl, 5, 1, 1)
	s.field(registers.RegVcoCtl, 5, 1, 1)
	s.field(registers.RegVcoCal, 5, 1, 1)
	if !s.poll(registers.RegVcoStatus, 4, vcoCalPolls) {
		s.fail(ErrVCOCalibration)
	}
	s.field(registers.RegVcoCal, 0, 4, s.read(registers.RegVcoCtl, 0, 4))
	s.field(registers.RegVcoCal, 6, 1, 1)
	s.field(registers.RegVcoCal, 5, 1, 0)
	s.update(registers.RegPllCtl, func(v uint8) uint8 { return v & 0x7F })
	s.field(registers.RegVcoBias, 5, 2, 1)
}

// SetFrequency synthesizes and programs a satellite frequency in kHz
func (t *Tuner) SetFrequency(ctx context.Context, sys isdb.DeliverySystem, kHz uint32) error {
	if sys != isdb.Satellite {
		return fmt.Errorf("%w: %s", ErrUnsupportedSystem, sys)
	}
	cfg, err := pll.Synthesize(kHz, pll.BandIndex(kHz))
	if err != nil {
		return err
	}
	t.logger.Debug("pll configured", "kHz", kHz, "pll", cfg.String())
	return t.Program(ctx, cfg)
}

// Program writes a PLL configuration and the current gain. The first failed
// register access aborts the sequence.
func (t *Tuner) Program(ctx context.Context, cfg pll.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.Band < 0 || cfg.Band >= pll.NumBands {
		return fmt.Errorf("%w: band %d", pll.ErrRange, cfg.Band)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &seq{dev: t.dev}
	setLoConfig(s, cfg.Band)
	if s.err != nil {
		return fmt.Errorf("failed to configure LO: %w", s.err)
	}

	s.host(registers.RegHostGateA, 0x00)
	s.host(registers.RegHostCtl0, 0xB0)
	s.host(registers.RegHostCtl1, 0x02)
	s.host(registers.RegHostCtl2, 0x01)

	s.field(registers.RegRefClk, 6, 2, cfg.RefClkRatio)
	s.field(registers.RegPllCfg, 5, 1, cfg.Predivider)
	s.write(registers.RegDsmInt, cfg.IntRegister())
	s.word(registers.RegDsmFrac, cfg.FracRegister())
	if s.err != nil {
		return fmt.Errorf("failed to program PLL: %w", s.err)
	}

	vcoChannelChange(s)
	if s.err != nil {
		return fmt.Errorf("failed to change VCO channel: %w", s.err)
	}

	// filter bandwidth
	s.field(registers.RegFilterBW, 0, 4, 0xA)
	s.field(registers.RegFilterTrim, 1, 7, 0x7C)

	gain := t.gain.GainByte()
	s.update(registers.RegGainCtl, func(v uint8) uint8 { return v&0x48 | 0x80 | gain })
	s.update(registers.RegAmpCtl, func(v uint8) uint8 { return 0xB0 | v&0x03 })
	s.field(registers.RegFilterBW, 5, 3, 3)
	s.field(registers.RegAmpOut, 4, 4, t.gain.AmpOut)
	if s.err != nil {
		return fmt.Errorf("failed to set gain: %w", s.err)
	}

	s.host(registers.RegHostGateA, 0xFF)
	s.host(registers.RegHostCtl0, 0xB2)
	s.host(registers.RegHostCtl1, 0x00)
	s.host(registers.RegHostCtl2, 0x01)
	if s.err != nil {
		return fmt.Errorf("failed to release tuner: %w", s.err)
	}

	t.last = cfg
	return nil
}

func vcoChannelChange(s *seq) {
	s.update(registers.RegPllCtl, func(v uint8) uint8 { return v&0x7F | 0x40 })
	s.field(registers.RegChanChange, 0, 2, 2)
	s.field(registers.RegChanChange, 7, 1, 0)
	s.field(registers.RegChanChange, 5, 1, 1)
	s.field(registers.RegChanChange, 5, 1, 1)
	s.field(registers.RegChanChange, 7, 1, 0)
	s.field(registers.RegChanChange, 4, 1, 1)
	if !s.poll(registers.RegChanStatus, 4, channelDonePolls) {
		s.fail(ErrChannelChange)
	}
	s.field(registers.RegChanChange, 4, 1, 0)
	s.update(registers.RegPllCtl, func(v uint8) uint8 { return v & 0x7F })
}

// Package tc90522 drives the Toshiba TC90522 ISDB-S/ISDB-T demodulator: it
// hands a resolved frequency to the tuner, polls the lock registers and
// reports lock state and carrier-to-noise readings.
package tc90522

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/isdb"
)

// Poll defaults
const (
	DefaultMaxPolls     = 999
	DefaultPollInterval = time.Millisecond
)

// Tuner programs the RF stage for a resolved frequency
type Tuner interface {
	SetFrequency(ctx context.Context, sys isdb.DeliverySystem, freq uint32) error
}

// ExternalTuner is a Tuner for front ends whose tuner is programmed by
// other means; it accepts every frequency
type ExternalTuner struct{}

// SetFrequency implements Tuner
func (ExternalTuner) SetFrequency(context.Context, isdb.DeliverySystem, uint32) error {
	return nil
}

// Options configures a Demod
type Options struct {
	MaxPolls     int           // lock polls per tune, DefaultMaxPolls when zero
	PollInterval time.Duration // pause between polls, DefaultPollInterval when zero
	// NoPause disables the pause between polls
	NoPause bool
	Logger  *slog.Logger
}

// Demod is one demodulator channel. Tunes are serialised; status queries may
// run alongside a tune.
type Demod struct {
	dev  *bus.Device
	opts Options

	tuneMu sync.Mutex

	mu     sync.Mutex
	status LockStatus
	state  State
	system isdb.DeliverySystem
}

// New returns a Demod on dev. dev must be tagged bus.Demod.
func New(dev *bus.Device, opts Options) *Demod {
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.NoPause {
		opts.PollInterval = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Demod{dev: dev, opts: opts}
}

// Device returns the bus device of the demodulator
func (d *Demod) Device() *bus.Device {
	return d.dev
}

// Status returns the lock status of the last tune
func (d *Demod) Status() LockStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// State returns the acquisition state
func (d *Demod) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// System returns the delivery system of the last tune request
func (d *Demod) System() isdb.DeliverySystem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.system
}

func (d *Demod) setStatus(s LockStatus) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

func (d *Demod) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// pause waits for the poll interval or until ctx is done
func (d *Demod) pause(ctx context.Context) error {
	if d.opts.PollInterval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d.opts.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

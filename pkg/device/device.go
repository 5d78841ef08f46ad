// Package device opens the bus described by a configuration and assembles
// the front end on it.
package device

import (
	"fmt"
	"log/slog"

	"github.com/google/gousb"

	"github.com/herlein/isdbtune/pkg/bridge"
	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/config"
	"github.com/herlein/isdbtune/pkg/frontend"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/metrics"
	"github.com/herlein/isdbtune/pkg/profiles"
	"github.com/herlein/isdbtune/pkg/tc90522"
	"github.com/herlein/isdbtune/pkg/tda2014x"
)

// Device is an opened front end
type Device struct {
	Bus      bus.Bus
	Demod    *bus.Device
	Tuner    *bus.Device
	Frontend *frontend.Frontend
	Profile  *profiles.Profile

	closers []func() error
}

// Open opens the configured bus and assembles the front end. m may be nil.
func Open(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		b       bus.Bus
		closers []func() error
	)
	switch cfg.Bus.Kind {
	case config.BusPeriph:
		p, err := bus.OpenPeriph(cfg.Bus.Name)
		if err != nil {
			return nil, err
		}
		b = p
		closers = append(closers, p.Close)
		logger.Debug("opened I2C bus", "bus", p.String())

	case config.BusBridge:
		usbCtx := gousb.NewContext()
		br, err := bridge.SelectDevice(usbCtx, bridge.DeviceSelector(cfg.Bus.Bridge))
		if err != nil {
			usbCtx.Close()
			return nil, err
		}
		if cfg.Bus.SpeedKHz != 0 {
			if err := br.SetSpeed(cfg.Bus.SpeedKHz); err != nil {
				br.Close()
				usbCtx.Close()
				return nil, err
			}
		}
		b = br
		closers = append(closers, br.Close, usbCtx.Close)
		logger.Debug("opened bridge", "bridge", br.String())

	default:
		return nil, fmt.Errorf("%w: bus kind %q", config.ErrInvalid, cfg.Bus.Kind)
	}

	d, err := Assemble(b, cfg, logger, m)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	d.closers = closers
	return d, nil
}

// Assemble builds the front end on an already opened bus
func Assemble(b bus.Bus, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profile, err := profiles.Resolve(cfg.Profile)
	if err != nil {
		return nil, err
	}
	gain, err := profile.Gain()
	if err != nil {
		return nil, err
	}

	d := &Device{
		Bus:     b,
		Demod:   bus.NewDevice(b, cfg.Bus.Address, bus.Demod),
		Tuner:   bus.NewDevice(b, cfg.Bus.Address, bus.Tuner),
		Profile: profile,
	}
	var tuner tc90522.Tuner = tc90522.ExternalTuner{}
	if cfg.System == isdb.Satellite {
		tuner = tda2014x.New(d.Tuner, tda2014x.Options{Gain: &gain, Logger: logger})
	}
	d.Frontend = &frontend.Frontend{
		Demod:   tc90522.New(d.Demod, cfg.DemodOptions(logger)),
		Tuner:   tuner,
		Metrics: m,
		Logger:  logger,
		Retry:   cfg.Retry,
	}
	return d, nil
}

// Close releases the bus
func (d *Device) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	d.closers = nil
	return first
}

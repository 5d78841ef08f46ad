package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/isdb"
)

// Flags are the command line overrides shared by every tool
type Flags struct {
	fs       *pflag.FlagSet
	Path     *string
	Bus      *string
	Name     *string
	Bridge   *string
	Address  *uint16
	System   *string
	Profile  *string
	LogLevel *string
}

// BindFlags registers the shared flags on fs
func BindFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		fs:       fs,
		Path:     fs.StringP("config", "c", "", "YAML configuration file"),
		Bus:      fs.String("bus", BusBridge, "Bus kind: bridge or periph"),
		Name:     fs.String("i2c", "", "periph I2C bus name (default: first bus)"),
		Bridge:   fs.StringP("device", "d", "", "Bridge selector: \"\", serial, bus:addr or #N"),
		Address:  fs.Uint16P("addr", "a", 0x10, "Demodulator I2C address"),
		System:   fs.StringP("system", "s", "isdb-s", "Delivery system: isdb-s or isdb-t"),
		Profile:  fs.StringP("profile", "p", "default", "Gain profile name or YAML file"),
		LogLevel: fs.String("log-level", "info", "Log level: debug, info, warn, error"),
	}
}

// Load reads the configuration file, if any, and applies the flags that
// were set on the command line
func (f *Flags) Load() (*Config, error) {
	cfg, err := LoadOrDefault(*f.Path)
	if err != nil {
		return nil, err
	}
	if f.fs.Changed("bus") {
		cfg.Bus.Kind = *f.Bus
	}
	if f.fs.Changed("i2c") {
		cfg.Bus.Name = *f.Name
	}
	if f.fs.Changed("device") {
		cfg.Bus.Bridge = *f.Bridge
	}
	if f.fs.Changed("addr") {
		cfg.Bus.Address = *f.Address
	}
	if f.fs.Changed("system") {
		sys, err := isdb.ParseDeliverySystem(*f.System)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		cfg.System = sys
	}
	if f.fs.Changed("profile") {
		cfg.Profile = *f.Profile
	}
	if f.fs.Changed("log-level") {
		cfg.Logging.Level = *f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

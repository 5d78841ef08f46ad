// Package config loads and saves the YAML configuration shared by the tools
// and dumps device register state to files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herlein/isdbtune/pkg/frontend"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/publish"
	"github.com/herlein/isdbtune/pkg/scanner"
	"github.com/herlein/isdbtune/pkg/tc90522"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Bus kinds
const (
	BusPeriph = "periph" // native I2C adapter
	BusBridge = "bridge" // USB to I2C bridge
)

// Config is the top level configuration file
type Config struct {
	Bus     BusConfig            `yaml:"bus"`
	System  isdb.DeliverySystem  `yaml:"system"`
	Profile string               `yaml:"profile"` // gain profile name or YAML file
	Demod   DemodConfig          `yaml:"demod"`
	Retry   frontend.RetryPolicy `yaml:"retry"`
	Scan    ScanConfig           `yaml:"scan"`
	Metrics MetricsConfig        `yaml:"metrics"`
	MQTT    MQTTConfig           `yaml:"mqtt"`
	Logging LoggingConfig        `yaml:"logging"`
}

// BusConfig selects how the demodulator is reached
type BusConfig struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`   // periph bus name, "" for the first bus
	Bridge   string `yaml:"bridge"` // bridge selector
	Address  uint16 `yaml:"address"`
	SpeedKHz uint16 `yaml:"speed_khz"`
}

// DemodConfig holds the acquisition polling parameters
type DemodConfig struct {
	MaxPolls     int           `yaml:"max_polls"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ScanConfig holds channel scan parameters
type ScanConfig struct {
	Samples        int           `yaml:"samples"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// MetricsConfig holds the Prometheus endpoint
type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. :9108, empty disables
	Path   string `yaml:"path"`
}

// MQTTConfig enables status publishing
type MQTTConfig struct {
	Enabled        bool `yaml:"enabled"`
	publish.Config `yaml:",inline"`
	Interval       time.Duration `yaml:"interval"`
}

// LoggingConfig selects the log handler
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Kind:     BusBridge,
			Address:  0x10,
			SpeedKHz: 400,
		},
		System:  isdb.Satellite,
		Profile: "default",
		Demod: DemodConfig{
			MaxPolls:     tc90522.DefaultMaxPolls,
			PollInterval: tc90522.DefaultPollInterval,
		},
		Retry: frontend.DefaultRetry,
		Scan: ScanConfig{
			Samples:        scanner.DefaultSamples,
			SampleInterval: scanner.DefaultSampleInterval,
		},
		Metrics: MetricsConfig{Path: "/metrics"},
		MQTT: MQTTConfig{
			Config:   publish.DefaultConfig(),
			Interval: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return writeFile(path, data)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.Bus.Kind {
	case BusPeriph, BusBridge:
	default:
		return fmt.Errorf("%w: bus kind %q", ErrInvalid, c.Bus.Kind)
	}
	if c.Bus.Address == 0 || c.Bus.Address > 0x7F {
		return fmt.Errorf("%w: I2C address 0x%X", ErrInvalid, c.Bus.Address)
	}
	if c.Demod.MaxPolls < 0 || c.Demod.PollInterval < 0 {
		return fmt.Errorf("%w: negative poll settings", ErrInvalid)
	}
	if c.Scan.Samples < 1 || c.Scan.Samples > scanner.MaxSamples {
		return fmt.Errorf("%w: scan samples %d", ErrInvalid, c.Scan.Samples)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt enabled without broker", ErrInvalid)
	}
	if c.MQTT.Enabled && c.MQTT.Interval <= 0 {
		return fmt.Errorf("%w: mqtt interval %s", ErrInvalid, c.MQTT.Interval)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// DemodOptions returns the demodulator options of the configuration
func (c *Config) DemodOptions(logger *slog.Logger) tc90522.Options {
	return tc90522.Options{
		MaxPolls:     c.Demod.MaxPolls,
		PollInterval: c.Demod.PollInterval,
		Logger:       logger,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, err
	}
	return l, nil
}

// NewLogger builds the logger described by the logging section
func (l LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

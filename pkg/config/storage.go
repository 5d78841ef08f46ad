package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/registers"
)

// DeviceDump holds the register state of a front end
type DeviceDump struct {
	Device    string             `yaml:"device"`
	Timestamp time.Time          `yaml:"timestamp"`
	Registers registers.Snapshot `yaml:"registers"`
}

// Tuner registers written back by ApplyToDevice: gain, filter and output
// amplifier settings
var restorable = []uint8{
	registers.RegGainCtl,
	registers.RegAmpCtl,
	registers.RegFilterBW,
	registers.RegFilterTrim,
	registers.RegAmpOut,
}

// DumpFromDevice reads the demodulator status block and, when tuner is not
// nil, the tuner register file
func DumpFromDevice(demod, tuner *bus.Device) (*DeviceDump, error) {
	snap, err := registers.ReadSnapshot(demod, tuner)
	if err != nil {
		return nil, fmt.Errorf("failed to read registers: %w", err)
	}
	return &DeviceDump{
		Device:    demod.String(),
		Timestamp: time.Now(),
		Registers: *snap,
	}, nil
}

// ApplyToDevice writes the gain and filter registers of a dump back to the
// tuner
func ApplyToDevice(tuner *bus.Device, dump *DeviceDump) error {
	if len(dump.Registers.Tuner) != registers.TunerRegCount {
		return fmt.Errorf("%w: dump has %d tuner registers, want %d", ErrInvalid, len(dump.Registers.Tuner), registers.TunerRegCount)
	}
	for _, reg := range restorable {
		if err := registers.Poke(tuner, reg, dump.Registers.Tuner[reg]); err != nil {
			return fmt.Errorf("failed to restore register 0x%02X: %w", reg, err)
		}
	}
	return nil
}

// SaveToFile writes a dump as YAML
func SaveToFile(dump *DeviceDump, path string) error {
	data, err := yaml.Marshal(dump)
	if err != nil {
		return fmt.Errorf("failed to marshal dump: %w", err)
	}
	return writeFile(path, data)
}

// LoadFromFile reads a dump written by SaveToFile
func LoadFromFile(path string) (*DeviceDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var dump DeviceDump
	if err := yaml.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dump: %w", err)
	}
	return &dump, nil
}

// GetDumpPath returns the default dump location of a device
func GetDumpPath(name string) string {
	return filepath.Join("etc", "isdbtune", fmt.Sprintf("%s.yaml", name))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

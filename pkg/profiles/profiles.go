// Package profiles provides named gain profiles for the TDA2014x tuner.
// A profile picks the LNA, loop-through and output amplifier gains applied at
// the end of every tune.
package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownProfile is returned by Lookup for names not registered
	ErrUnknownProfile = errors.New("unknown gain profile")
	// ErrInvalidGain is returned for a gain the tuner cannot select
	ErrInvalidGain = errors.New("unsupported gain")
)

// LNA gain codes
const (
	LNA7dB       = 0x0
	LNA10dB      = 0x1
	LNA13dB      = 0x2 // default
	LNA18dB      = 0x3
	LNAMinus11dB = 0x4
)

// Loop-through gain codes
const (
	LPTMinus8dB  = 0x0
	LPTMinus10dB = 0x1 // default
	LPTMinus14dB = 0x2
	LPTMinus16dB = 0x3
)

// Output amplifier codes
const (
	AmpOut15dB  = 0x0
	AmpOut18dB  = 0x1
	AmpOut18dBb = 0x2
	AmpOut21dB  = 0x3 // default
	AmpOut24dB  = 0x6
	AmpOut27dB  = 0x7
	AmpOut30dB  = 0xE
	AmpOut33dB  = 0xF
)

var lnaCodes = map[int]uint8{7: LNA7dB, 10: LNA10dB, 13: LNA13dB, 18: LNA18dB, -11: LNAMinus11dB}

var lptCodes = map[int]uint8{-8: LPTMinus8dB, -10: LPTMinus10dB, -14: LPTMinus14dB, -16: LPTMinus16dB}

var ampOutCodes = map[int]uint8{
	15: AmpOut15dB, 18: AmpOut18dB, 21: AmpOut21dB, 24: AmpOut24dB,
	27: AmpOut27dB, 30: AmpOut30dB, 33: AmpOut33dB,
}

// Gain holds the register codes of a profile
type Gain struct {
	LNA    uint8
	LPT    uint8
	AmpOut uint8
}

// DefaultGain is LNA 13 dB, loop-through -10 dB, output 21 dB
var DefaultGain = Gain{LNA: LNA13dB, LPT: LPTMinus10dB, AmpOut: AmpOut21dB}

// GainByte is the low part of the gain control register: LNA boost in bit 0,
// loop-through gain in bits 1-2 and LNA gain in bits 4-5
func (g Gain) GainByte() uint8 {
	var boost uint8
	if g.LNA == LNA18dB {
		boost = 1
	}
	return boost | (g.LNA&3)<<4 | g.LPT<<1
}

// Profile is a named gain setting, expressed in dB
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	LNAdB       int    `yaml:"lna_db"`
	LPTdB       int    `yaml:"lpt_db"`
	AmpOutdB    int    `yaml:"ampout_db"`
}

// Gain converts the profile to register codes
func (p *Profile) Gain() (Gain, error) {
	lna, ok := lnaCodes[p.LNAdB]
	if !ok {
		return Gain{}, fmt.Errorf("%w: LNA %d dB", ErrInvalidGain, p.LNAdB)
	}
	lpt, ok := lptCodes[p.LPTdB]
	if !ok {
		return Gain{}, fmt.Errorf("%w: loop-through %d dB", ErrInvalidGain, p.LPTdB)
	}
	amp, ok := ampOutCodes[p.AmpOutdB]
	if !ok {
		return Gain{}, fmt.Errorf("%w: output amplifier %d dB", ErrInvalidGain, p.AmpOutdB)
	}
	return Gain{LNA: lna, LPT: lpt, AmpOut: amp}, nil
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s (LNA %+d dB, LPT %+d dB, AMPOUT %d dB)", p.Name, p.LNAdB, p.LPTdB, p.AmpOutdB)
}

// Built-in profiles
var builtin = map[string]*Profile{
	"default": {
		Name:        "default",
		Description: "balanced gain for a typical dish feed",
		LNAdB:       13,
		LPTdB:       -10,
		AmpOutdB:    21,
	},
	"low-noise": {
		Name:        "low-noise",
		Description: "maximum LNA gain for weak transponders",
		LNAdB:       18,
		LPTdB:       -8,
		AmpOutdB:    24,
	},
	"strong-signal": {
		Name:        "strong-signal",
		Description: "reduced gain for short cable runs and amplified feeds",
		LNAdB:       7,
		LPTdB:       -16,
		AmpOutdB:    15,
	},
}

// Names returns the built-in profile names, sorted
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of a built-in profile
func Lookup(name string) (*Profile, error) {
	p, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	cp := *p
	return &cp, nil
}

// ProfileConfig is the file format for stored profiles
type ProfileConfig struct {
	Profile Profile `yaml:"profile"`
	// Register values the profile produces, for reference only
	GainByte  uint8     `yaml:"gain_byte"`
	AmpOut    uint8     `yaml:"ampout_code"`
	Timestamp time.Time `yaml:"timestamp"`
}

// SaveToFile saves a profile to a YAML file
func (p *Profile) SaveToFile(path string) error {
	g, err := p.Gain()
	if err != nil {
		return err
	}
	config := ProfileConfig{
		Profile:   *p,
		GainByte:  g.GainByte(),
		AmpOut:    g.AmpOut,
		Timestamp: time.Now(),
	}

	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := EnsureDir(path); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadProfileFromFile loads and validates a profile from a YAML file
func LoadProfileFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var config ProfileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if _, err := config.Profile.Gain(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", config.Profile.Name, err)
	}
	return &config.Profile, nil
}

// Resolve returns the built-in profile called name, or loads name as a file
// when it is not a built-in
func Resolve(name string) (*Profile, error) {
	if name == "" {
		name = "default"
	}
	if p, err := Lookup(name); err == nil {
		return p, nil
	}
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return LoadProfileFromFile(name)
}

// GenerateProfiles writes every built-in profile to basePath/<name>.yaml
func GenerateProfiles(basePath string) error {
	for _, name := range Names() {
		p := builtin[name]
		if err := p.SaveToFile(filepath.Join(basePath, name+".yaml")); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
	}
	return nil
}

// EnsureDir ensures the directory for a file path exists
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}

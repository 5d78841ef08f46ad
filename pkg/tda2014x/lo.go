package tda2014x

import "github.com/herlein/isdbtune/pkg/registers"

// loBand is the LO chain setup of one PLL band
type loBand struct {
	doubler bool
	dcc1    bool
	dcc2    bool
	ppf     bool
	div1By3 bool
	div2By3 bool
	div4to7 bool // select the divide by 4/5/6/7 path
	div8    bool // select the divide by 8 path
}

var loBands = [...]loBand{
	{div8: true},
	{doubler: true, dcc1: true, dcc2: true, ppf: true, div1By3: true, div2By3: true, div4to7: true},
	{doubler: true, dcc1: true, dcc2: true, ppf: true, div2By3: true, div4to7: true},
	{doubler: true, dcc1: true, dcc2: true, ppf: true, div1By3: true, div4to7: true},
	{doubler: true, dcc1: true, dcc2: true, ppf: true, div4to7: true},
}

func bit(b bool, n uint) uint8 {
	if b {
		return 1 << n
	}
	return 0
}

// configReg is the value of the LO configuration register
func (b loBand) configReg() uint8 {
	return bit(b.doubler, 7) | bit(b.dcc1, 6) | bit(b.dcc2, 5) | 0b11110 | bit(b.ppf, 0)
}

// dividerBits are the divider selection bits of the LO divider register
func (b loBand) dividerBits() uint8 {
	return bit(b.div1By3, 7) | bit(b.div2By3, 5) | bit(b.div4to7, 3) | bit(b.div8, 2)
}

// loDividerKeep masks the divider register bits not owned by the band setup
const loDividerKeep = 0b1010011

// setLoConfig selects the LO chain of band, keeping the input mux setting
func setLoConfig(s *seq, band int) {
	lo := loBands[band]
	mux := s.read(registers.RegLoInput, 3, 1)
	s.write(registers.RegLoConfig, lo.configReg())
	s.update(registers.RegLoDivider, func(v uint8) uint8 { return lo.dividerBits() | v&loDividerKeep })
	s.field(registers.RegLoInput, 3, 1, mux)
}

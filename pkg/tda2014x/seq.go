package tda2014x

import (
	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/registers"
)

// seq runs register accesses until the first failure. After a failure every
// call is a no-op and reads return zero.
type seq struct {
	dev *bus.Device
	err error
}

func (s *seq) host(reg, val uint8) {
	if s.err == nil {
		s.err = s.dev.WriteHost(reg, val)
	}
}

func (s *seq) write(reg, val uint8) {
	if s.err == nil {
		s.err = s.dev.Write(reg, val)
	}
}

// field writes a bit field, keeping the other bits of reg
func (s *seq) field(reg uint8, start, nbits uint, val uint8) {
	if s.err == nil {
		s.err = registers.WriteField(s.dev, reg, start, nbits, true, val)
	}
}

func (s *seq) update(reg uint8, fn func(uint8) uint8) {
	if s.err == nil {
		s.err = registers.Update(s.dev, reg, fn)
	}
}

func (s *seq) word(reg uint8, val uint16) {
	if s.err == nil {
		s.err = registers.WriteWord(s.dev, reg, val)
	}
}

func (s *seq) read(reg uint8, start, nbits uint) uint8 {
	if s.err != nil {
		return 0
	}
	v, err := registers.ReadField(s.dev, reg, start, nbits)
	s.err = err
	return v
}

// poll reads a flag up to tries times and reports whether it was seen set
func (s *seq) poll(reg uint8, bit uint, tries int) bool {
	for i := 0; i < tries && s.err == nil; i++ {
		if s.read(reg, bit, 1) == 1 {
			return true
		}
	}
	return false
}

// fail records err unless an earlier failure is pending
func (s *seq) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Package registers holds the register maps of the TC90522 demodulator and
// the TDA2014x tuner, and bit-field helpers built on a bus.Device.
package registers

import (
	"fmt"

	"github.com/herlein/isdbtune/pkg/bus"
)

// Peek reads a single register
func Peek(dev *bus.Device, reg uint8) (uint8, error) {
	return dev.ReadReg(reg)
}

// PeekMultiple reads n consecutive registers
func PeekMultiple(dev *bus.Device, reg uint8, n int) ([]byte, error) {
	return dev.Read(reg, n)
}

// Poke writes a single register
func Poke(dev *bus.Device, reg, val uint8) error {
	return dev.Write(reg, val)
}

// FieldMask returns the mask of an nbits wide field starting at bit start.
// Fields wider than 7 bits cover the whole register.
func FieldMask(start, nbits uint) uint8 {
	if nbits > 7 {
		return 0xFF
	}
	return uint8(((1 << nbits) - 1) << start)
}

// ReadField reads a register and extracts an nbits wide field at bit start
func ReadField(dev *bus.Device, reg uint8, start, nbits uint) (uint8, error) {
	v, err := dev.ReadReg(reg)
	if err != nil {
		return 0, err
	}
	return (v & FieldMask(start, nbits)) >> start, nil
}

// ReadFlag reports whether bit is set in reg
func ReadFlag(dev *bus.Device, reg uint8, bit uint) (bool, error) {
	v, err := ReadField(dev, reg, bit, 1)
	return v != 0, err
}

// WriteField places val in the nbits wide field at bit start. With rmw the
// bits outside the field keep their current value, otherwise they are
// written as zero and the register is not read.
func WriteField(dev *bus.Device, reg uint8, start, nbits uint, rmw bool, val uint8) error {
	mask := FieldMask(start, nbits)
	out := mask & (val << start)
	if rmw {
		cur, err := dev.ReadReg(reg)
		if err != nil {
			return err
		}
		out |= ^mask & cur
	}
	return dev.Write(reg, out)
}

// WriteFlag sets or clears a single bit, preserving the rest of reg
func WriteFlag(dev *bus.Device, reg uint8, bit uint, on bool) error {
	var v uint8
	if on {
		v = 1
	}
	return WriteField(dev, reg, bit, 1, true, v)
}

// WriteWord writes a 16-bit value to reg and reg+1, high byte first
func WriteWord(dev *bus.Device, reg uint8, val uint16) error {
	if err := dev.Write(reg, uint8(val>>8)); err != nil {
		return err
	}
	return dev.Write(reg+1, uint8(val))
}

// Update reads reg, applies fn and writes the result back
func Update(dev *bus.Device, reg uint8, fn func(uint8) uint8) error {
	v, err := dev.ReadReg(reg)
	if err != nil {
		return err
	}
	return dev.Write(reg, fn(v))
}

// ReadSnapshot reads the demodulator status block and, if tuner is not nil,
// the whole tuner register file
func ReadSnapshot(demod, tuner *bus.Device) (*Snapshot, error) {
	s := &Snapshot{}
	var err error

	if s.TLock0, err = demod.ReadReg(RegTLock0); err != nil {
		return nil, fmt.Errorf("failed to read terrestrial lock: %w", err)
	}
	if s.TLock1, err = demod.ReadReg(RegTLock1); err != nil {
		return nil, fmt.Errorf("failed to read terrestrial lock: %w", err)
	}
	if s.TCNR, err = demod.Read(RegTCNR, TCNRLen); err != nil {
		return nil, fmt.Errorf("failed to read terrestrial CNR: %w", err)
	}
	if s.SStatus, err = demod.ReadReg(RegSStatus); err != nil {
		return nil, fmt.Errorf("failed to read satellite status: %w", err)
	}
	if s.SCNR, err = demod.Read(RegSCNR, SCNRLen); err != nil {
		return nil, fmt.Errorf("failed to read satellite CNR: %w", err)
	}

	list, err := demod.Read(RegSTSIDList, TSIDListLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read TSID table: %w", err)
	}
	s.TSIDList = make([]uint16, TSIDSlots)
	for i := range s.TSIDList {
		s.TSIDList[i] = uint16(list[2*i])<<8 | uint16(list[2*i+1])
	}

	cur, err := demod.Read(RegSTSIDCur, TSIDFieldLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read current TSID: %w", err)
	}
	s.TSIDCur = uint16(cur[0])<<8 | uint16(cur[1])

	if tuner != nil {
		if s.Tuner, err = tuner.Read(0, TunerRegCount); err != nil {
			return nil, fmt.Errorf("failed to read tuner registers: %w", err)
		}
	}
	return s, nil
}

// Package bus is the register bus adapter shared by the demodulator and the
// tuner. Both chips sit behind one I2C address: the demodulator is addressed
// directly, the tuner through the demodulator's gateway register. A Chip tag
// selects how a register access is turned into bus messages.
package bus

import (
	"errors"
	"fmt"
)

// ErrBus is wrapped by every failed register transaction
var ErrBus = errors.New("register bus transaction failed")

// Msg is one segment of a combined bus transaction
type Msg struct {
	Addr uint16
	Read bool
	Data []byte
}

// Bus performs a combined transaction. Implementations report failure of any
// segment as an error; partial transfers are failures.
type Bus interface {
	Transfer(msgs ...Msg) error
}

// Addressing constants
const (
	ControlFlag = 0x80 // set on the address of a command-phase message

	TunerGate     = 0xFE // demodulator register forwarding to the tuner
	TunerWriteCmd = 0xA8
	TunerReadCmd  = 0xA9
)

// Chip selects the addressing convention of a register access
type Chip uint8

const (
	Demod Chip = iota // 8-bit register offset, control-phase address for reads
	Tuner             // register space reached through the demodulator gateway
)

// String returns the chip name used in errors and logs
func (c Chip) String() string {
	switch c {
	case Demod:
		return "demod"
	case Tuner:
		return "tuner"
	default:
		return fmt.Sprintf("Chip(%d)", uint8(c))
	}
}

// ReadMsgs builds the transaction that reads len(buf) bytes starting at reg
func (c Chip) ReadMsgs(addr uint16, reg uint8, buf []byte) []Msg {
	if c == Tuner {
		return []Msg{
			{Addr: addr, Data: []byte{TunerGate, TunerWriteCmd, reg}},
			{Addr: addr | ControlFlag, Data: []byte{TunerGate, TunerReadCmd}},
			{Addr: addr, Read: true, Data: buf},
		}
	}
	return []Msg{
		{Addr: addr | ControlFlag, Data: []byte{reg}},
		{Addr: addr, Read: true, Data: buf},
	}
}

// WriteMsgs builds the transaction that writes a single register
func (c Chip) WriteMsgs(addr uint16, reg, val uint8) []Msg {
	if c == Tuner {
		return []Msg{{Addr: addr, Data: []byte{TunerGate, TunerWriteCmd, reg, val}}}
	}
	return []Msg{{Addr: addr, Data: []byte{reg, val}}}
}

// Device is one chip on a bus
type Device struct {
	Bus  Bus
	Addr uint16
	Chip Chip
}

// NewDevice returns a Device for chip at addr
func NewDevice(b Bus, addr uint16, chip Chip) *Device {
	return &Device{Bus: b, Addr: addr, Chip: chip}
}

// Read reads n consecutive registers starting at reg. The tuner gateway
// returns one register per transaction, so tuner reads are issued one by one.
func (d *Device) Read(reg uint8, n int) ([]byte, error) {
	buf := make([]byte, n)
	if d.Chip == Tuner {
		for i := 0; i < n; i++ {
			if err := d.Bus.Transfer(d.Chip.ReadMsgs(d.Addr, reg+uint8(i), buf[i:i+1])...); err != nil {
				return nil, fmt.Errorf("%w: %s read 0x%02X: %w", ErrBus, d.Chip, reg+uint8(i), err)
			}
		}
		return buf, nil
	}
	if err := d.Bus.Transfer(d.Chip.ReadMsgs(d.Addr, reg, buf)...); err != nil {
		return nil, fmt.Errorf("%w: %s read 0x%02X: %w", ErrBus, d.Chip, reg, err)
	}
	return buf, nil
}

// ReadReg reads a single register
func (d *Device) ReadReg(reg uint8) (uint8, error) {
	buf, err := d.Read(reg, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Write writes a single register
func (d *Device) Write(reg, val uint8) error {
	if err := d.Bus.Transfer(d.Chip.WriteMsgs(d.Addr, reg, val)...); err != nil {
		return fmt.Errorf("%w: %s write 0x%02X=0x%02X: %w", ErrBus, d.Chip, reg, val, err)
	}
	return nil
}

// WriteHost writes a register of the demodulator hosting this device,
// bypassing the tuner gateway
func (d *Device) WriteHost(reg, val uint8) error {
	if err := d.Bus.Transfer(Demod.WriteMsgs(d.Addr, reg, val)...); err != nil {
		return fmt.Errorf("%w: host write 0x%02X=0x%02X: %w", ErrBus, reg, val, err)
	}
	return nil
}

func (d *Device) String() string {
	return fmt.Sprintf("%s@0x%02X", d.Chip, d.Addr)
}

package bridge

import (
	"encoding/binary"
	"fmt"

	"github.com/herlein/isdbtune/pkg/bus"
)

// Transfer runs msgs as one combined I2C transaction with a repeated start
// between segments. It implements bus.Bus.
func (d *Device) Transfer(msgs ...bus.Msg) error {
	payload, err := encodeXfer(msgs)
	if err != nil {
		return err
	}
	resp, err := d.Send(AppI2C, I2CCmdXfer, payload, 0)
	if err != nil {
		return fmt.Errorf("failed to run I2C transaction: %w", err)
	}
	return decodeXfer(resp, msgs)
}

// SetSpeed sets the I2C clock in kHz
func (d *Device) SetSpeed(kHz uint16) error {
	if _, err := d.Send(AppI2C, I2CCmdSpeed, binary.LittleEndian.AppendUint16(nil, kHz), 0); err != nil {
		return fmt.Errorf("failed to set I2C speed: %w", err)
	}
	return nil
}

var _ bus.Bus = (*Device)(nil)

package bus

import (
	"fmt"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// Periph adapts a periph.io I2C bus. Each Msg becomes one Tx, so a combined
// transaction is issued as consecutive transfers.
type Periph struct {
	bus    i2c.Bus
	closer i2c.BusCloser
}

// NewPeriph wraps an already opened periph.io bus
func NewPeriph(b i2c.Bus) *Periph {
	return &Periph{bus: b}
}

// OpenPeriph initializes the periph.io host drivers and opens the named I2C
// bus. An empty name opens the first bus found.
func OpenPeriph(name string) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", name, err)
	}
	return &Periph{bus: b, closer: b}, nil
}

// Transfer implements Bus
func (p *Periph) Transfer(msgs ...Msg) error {
	for _, m := range msgs {
		var err error
		if m.Read {
			err = p.bus.Tx(m.Addr, nil, m.Data)
		} else {
			err = p.bus.Tx(m.Addr, m.Data, nil)
		}
		if err != nil {
			return fmt.Errorf("i2c tx to 0x%02X: %w", m.Addr, err)
		}
	}
	return nil
}

// Close closes the bus if it was opened by OpenPeriph
func (p *Periph) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

func (p *Periph) String() string {
	return p.bus.String()
}

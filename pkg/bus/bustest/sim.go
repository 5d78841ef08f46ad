// Package bustest provides a simulated demodulator/tuner register file that
// decodes the transactions built by package bus.
package bustest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/herlein/isdbtune/pkg/bus"
)

// ErrInjected is returned by transactions failed on purpose
var ErrInjected = errors.New("injected bus fault")

// Op is one decoded register access
type Op struct {
	Chip  bus.Chip
	Write bool
	Reg   uint8
	Value uint8 // written value, or first byte read
	N     int   // bytes read
}

func (o Op) String() string {
	if o.Write {
		return fmt.Sprintf("%s W 0x%02X=0x%02X", o.Chip, o.Reg, o.Value)
	}
	return fmt.Sprintf("%s R 0x%02X[%d]", o.Chip, o.Reg, o.N)
}

type regKey struct {
	chip bus.Chip
	reg  uint8
}

// ReadFunc produces the bytes returned by the count-th (1-based) read of a
// register. Returning nil falls back to the register file.
type ReadFunc func(count int) []byte

// Sim is a register file for one demodulator and the tuner behind its
// gateway. It is safe for concurrent use.
type Sim struct {
	mu      sync.Mutex
	addr    uint16
	regs    map[regKey]uint8
	scripts map[regKey][][]byte
	hooks   map[regKey]ReadFunc
	reads   map[regKey]int
	log     []Op

	// FailOn, when set, is consulted before every access. It runs with the
	// simulator locked and must not call back into the Sim.
	FailOn func(op Op) error
}

// New returns a simulator answering at addr with all registers zero
func New(addr uint16) *Sim {
	return &Sim{
		addr:    addr,
		regs:    make(map[regKey]uint8),
		scripts: make(map[regKey][][]byte),
		hooks:   make(map[regKey]ReadFunc),
		reads:   make(map[regKey]int),
	}
}

// Set stores a register value
func (s *Sim) Set(chip bus.Chip, reg, val uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[regKey{chip, reg}] = val
}

// SetBytes stores consecutive register values starting at reg
func (s *Sim) SetBytes(chip bus.Chip, reg uint8, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range data {
		s.regs[regKey{chip, reg + uint8(i)}] = b
	}
}

// Get returns a register value
func (s *Sim) Get(chip bus.Chip, reg uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[regKey{chip, reg}]
}

// Script queues values returned by successive reads of reg. The last value
// is repeated once the queue is drained.
func (s *Sim) Script(chip bus.Chip, reg uint8, values ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[regKey{chip, reg}] = values
}

// OnRead installs a hook computing the value of reads of reg
func (s *Sim) OnRead(chip bus.Chip, reg uint8, fn ReadFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[regKey{chip, reg}] = fn
}

// Reads returns how many times reg has been read
func (s *Sim) Reads(chip bus.Chip, reg uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[regKey{chip, reg}]
}

// Log returns a copy of all decoded accesses
func (s *Sim) Log() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.log...)
}

// Writes returns the writes made to one chip, in order
func (s *Sim) Writes(chip bus.Chip) []Op {
	var out []Op
	for _, op := range s.Log() {
		if op.Write && op.Chip == chip {
			out = append(out, op)
		}
	}
	return out
}

// Reset clears the access log and read counters, keeping register values
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
	s.reads = make(map[regKey]int)
}

// Transfer implements bus.Bus
func (s *Sim) Transfer(msgs ...bus.Msg) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		if a := m.Addr &^ bus.ControlFlag; a != s.addr {
			return fmt.Errorf("no device at 0x%02X", a)
		}
	}

	switch {
	// demod or host write: {reg, val}
	case len(msgs) == 1 && !msgs[0].Read && len(msgs[0].Data) == 2:
		return s.write(bus.Demod, msgs[0].Data[0], msgs[0].Data[1])

	// tuner write through the gateway: {FE, A8, reg, val}
	case len(msgs) == 1 && !msgs[0].Read && len(msgs[0].Data) == 4 &&
		msgs[0].Data[0] == bus.TunerGate && msgs[0].Data[1] == bus.TunerWriteCmd:
		return s.write(bus.Tuner, msgs[0].Data[2], msgs[0].Data[3])

	// demod read: W(addr|0x80: reg), R(addr)
	case len(msgs) == 2 && !msgs[0].Read && msgs[0].Addr&bus.ControlFlag != 0 &&
		len(msgs[0].Data) == 1 && msgs[1].Read:
		return s.read(bus.Demod, msgs[0].Data[0], msgs[1].Data)

	// tuner read: W(addr: FE A8 reg), W(addr|0x80: FE A9), R(addr)
	case len(msgs) == 3 && len(msgs[0].Data) == 3 && msgs[0].Data[0] == bus.TunerGate &&
		len(msgs[1].Data) == 2 && msgs[1].Data[1] == bus.TunerReadCmd && msgs[2].Read:
		return s.read(bus.Tuner, msgs[0].Data[2], msgs[2].Data)
	}
	return fmt.Errorf("unexpected transaction of %d messages", len(msgs))
}

func (s *Sim) write(chip bus.Chip, reg, val uint8) error {
	op := Op{Chip: chip, Write: true, Reg: reg, Value: val}
	if s.FailOn != nil {
		if err := s.FailOn(op); err != nil {
			return err
		}
	}
	s.log = append(s.log, op)
	s.regs[regKey{chip, reg}] = val
	return nil
}

func (s *Sim) read(chip bus.Chip, reg uint8, buf []byte) error {
	op := Op{Chip: chip, Reg: reg, N: len(buf)}
	if s.FailOn != nil {
		if err := s.FailOn(op); err != nil {
			return err
		}
	}
	key := regKey{chip, reg}
	s.reads[key]++
	count := s.reads[key]

	var data []byte
	if fn := s.hooks[key]; fn != nil {
		data = fn(count)
	}
	if data == nil {
		if q := s.scripts[key]; len(q) > 0 {
			if count <= len(q) {
				data = q[count-1]
			} else {
				data = q[len(q)-1]
			}
		}
	}
	for i := range buf {
		if data != nil {
			if i < len(data) {
				buf[i] = data[i]
			} else {
				buf[i] = 0
			}
			continue
		}
		buf[i] = s.regs[regKey{chip, reg + uint8(i)}]
	}
	if len(buf) > 0 {
		op.Value = buf[0]
	}
	s.log = append(s.log, op)
	return nil
}

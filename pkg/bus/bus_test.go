package bus

import (
	"bytes"
	"errors"
	"testing"
)

type recordBus struct {
	msgs  [][]Msg
	reply []byte
	err   error
}

func (r *recordBus) Transfer(msgs ...Msg) error {
	r.msgs = append(r.msgs, msgs)
	if r.err != nil {
		return r.err
	}
	for _, m := range msgs {
		if m.Read {
			copy(m.Data, r.reply)
		}
	}
	return nil
}

func TestDemodTransactions(t *testing.T) {
	rb := &recordBus{reply: []byte{0x12, 0x34}}
	dev := NewDevice(rb, 0x10, Demod)

	data, err := dev.Read(0xBC, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(data, []byte{0x12, 0x34}) {
		t.Errorf("Read = % X", data)
	}
	got := rb.msgs[0]
	if len(got) != 2 {
		t.Fatalf("demod read used %d messages, want 2", len(got))
	}
	if got[0].Addr != 0x90 || got[0].Read || !bytes.Equal(got[0].Data, []byte{0xBC}) {
		t.Errorf("command phase = %+v", got[0])
	}
	if got[1].Addr != 0x10 || !got[1].Read || len(got[1].Data) != 2 {
		t.Errorf("data phase = %+v", got[1])
	}

	if err := dev.Write(0x8F, 0x40); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w := rb.msgs[1]
	if len(w) != 1 || w[0].Addr != 0x10 || !bytes.Equal(w[0].Data, []byte{0x8F, 0x40}) {
		t.Errorf("demod write = %+v", w)
	}
}

func TestTunerTransactions(t *testing.T) {
	rb := &recordBus{reply: []byte{0x5A}}
	dev := NewDevice(rb, 0x11, Tuner)

	v, err := dev.ReadReg(0x25)
	if err != nil {
		t.Fatalf("ReadReg: %v", err)
	}
	if v != 0x5A {
		t.Errorf("ReadReg = 0x%02X", v)
	}
	got := rb.msgs[0]
	if len(got) != 3 {
		t.Fatalf("tuner read used %d messages, want 3", len(got))
	}
	if got[0].Addr != 0x11 || !bytes.Equal(got[0].Data, []byte{0xFE, 0xA8, 0x25}) {
		t.Errorf("gateway select = %+v", got[0])
	}
	if got[1].Addr != 0x91 || !bytes.Equal(got[1].Data, []byte{0xFE, 0xA9}) {
		t.Errorf("gateway read command = %+v", got[1])
	}
	if got[2].Addr != 0x11 || !got[2].Read || len(got[2].Data) != 1 {
		t.Errorf("data phase = %+v", got[2])
	}

	if err := dev.Write(0x1E, 0x12); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w := rb.msgs[1]; !bytes.Equal(w[0].Data, []byte{0xFE, 0xA8, 0x1E, 0x12}) {
		t.Errorf("tuner write = % X", w[0].Data)
	}

	if err := dev.WriteHost(0x0A, 0xFF); err != nil {
		t.Fatalf("WriteHost: %v", err)
	}
	if w := rb.msgs[2]; !bytes.Equal(w[0].Data, []byte{0x0A, 0xFF}) {
		t.Errorf("host write = % X", w[0].Data)
	}
}

func TestTunerMultiByteReadIsSequential(t *testing.T) {
	rb := &recordBus{reply: []byte{0x01}}
	dev := NewDevice(rb, 0x11, Tuner)
	if _, err := dev.Read(0x1F, 2); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rb.msgs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(rb.msgs))
	}
	if rb.msgs[1][0].Data[2] != 0x20 {
		t.Errorf("second read addressed 0x%02X, want 0x20", rb.msgs[1][0].Data[2])
	}
}

func TestErrorsWrapErrBus(t *testing.T) {
	cause := errors.New("nak")
	dev := NewDevice(&recordBus{err: cause}, 0x10, Demod)

	_, err := dev.Read(0x80, 1)
	if !errors.Is(err, ErrBus) || !errors.Is(err, cause) {
		t.Errorf("Read error = %v, want ErrBus wrapping cause", err)
	}
	if err := dev.Write(0x80, 0); !errors.Is(err, ErrBus) {
		t.Errorf("Write error = %v, want ErrBus", err)
	}
	if err := dev.WriteHost(0x80, 0); !errors.Is(err, ErrBus) {
		t.Errorf("WriteHost error = %v, want ErrBus", err)
	}
}

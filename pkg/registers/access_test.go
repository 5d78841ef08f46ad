package registers

import (
	"errors"
	"testing"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/bus/bustest"
)

const addr = 0x10

func newTuner() (*bustest.Sim, *bus.Device) {
	sim := bustest.New(addr)
	return sim, bus.NewDevice(sim, addr, bus.Tuner)
}

func TestFieldMask(t *testing.T) {
	tests := []struct {
		start, nbits uint
		want         uint8
	}{
		{0, 1, 0x01},
		{3, 1, 0x08},
		{6, 2, 0xC0},
		{0, 4, 0x0F},
		{1, 7, 0xFE},
		{0, 8, 0xFF},
		{4, 9, 0xFF},
	}
	for _, tt := range tests {
		if got := FieldMask(tt.start, tt.nbits); got != tt.want {
			t.Errorf("FieldMask(%d, %d) = 0x%02X, want 0x%02X", tt.start, tt.nbits, got, tt.want)
		}
	}
}

func TestReadField(t *testing.T) {
	sim, dev := newTuner()
	sim.Set(bus.Tuner, RegLoInput, 0b1010_1000)

	v, err := ReadField(dev, RegLoInput, 3, 1)
	if err != nil || v != 1 {
		t.Errorf("ReadField bit 3 = %d, %v", v, err)
	}
	v, err = ReadField(dev, RegLoInput, 4, 4)
	if err != nil || v != 0b1010 {
		t.Errorf("ReadField 7:4 = %d, %v", v, err)
	}
	on, err := ReadFlag(dev, RegLoInput, 2)
	if err != nil || on {
		t.Errorf("ReadFlag bit 2 = %v, %v", on, err)
	}
}

func TestWriteFieldRMW(t *testing.T) {
	sim, dev := newTuner()
	sim.Set(bus.Tuner, RegRefClk, 0x3F)

	if err := WriteField(dev, RegRefClk, 6, 2, true, 2); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(bus.Tuner, RegRefClk); got != 0xBF {
		t.Errorf("reg = 0x%02X, want 0xBF", got)
	}
}

func TestWriteFieldNoRMWSkipsRead(t *testing.T) {
	sim, dev := newTuner()
	sim.Set(bus.Tuner, RegFilterBW, 0xF0)

	if err := WriteField(dev, RegFilterBW, 0, 4, false, 0xA); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(bus.Tuner, RegFilterBW); got != 0x0A {
		t.Errorf("reg = 0x%02X, want 0x0A", got)
	}
	if n := sim.Reads(bus.Tuner, RegFilterBW); n != 0 {
		t.Errorf("register read %d times, want 0", n)
	}
}

func TestWriteFieldTruncatesValue(t *testing.T) {
	sim, dev := newTuner()
	if err := WriteField(dev, RegAmpOut, 4, 4, true, 0x1F); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(bus.Tuner, RegAmpOut); got != 0xF0 {
		t.Errorf("reg = 0x%02X, want 0xF0", got)
	}
}

func TestWriteFlag(t *testing.T) {
	sim, dev := newTuner()
	sim.Set(bus.Tuner, RegPllCfg, 0x41)
	if err := WriteFlag(dev, RegPllCfg, 5, true); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(bus.Tuner, RegPllCfg); got != 0x61 {
		t.Errorf("set = 0x%02X", got)
	}
	if err := WriteFlag(dev, RegPllCfg, 6, false); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(bus.Tuner, RegPllCfg); got != 0x21 {
		t.Errorf("clear = 0x%02X", got)
	}
}

func TestWriteWord(t *testing.T) {
	sim, dev := newTuner()
	if err := WriteWord(dev, RegDsmFrac, 0x71C6); err != nil {
		t.Fatal(err)
	}
	w := sim.Writes(bus.Tuner)
	if len(w) != 2 {
		t.Fatalf("%d writes, want 2", len(w))
	}
	if w[0].Reg != RegDsmFrac || w[0].Value != 0x71 || w[1].Reg != RegDsmFrac+1 || w[1].Value != 0xC6 {
		t.Errorf("writes = %v", w)
	}
}

func TestUpdate(t *testing.T) {
	sim, dev := newTuner()
	sim.Set(bus.Tuner, RegPllCtl, 0xC5)
	if err := Update(dev, RegPllCtl, func(v uint8) uint8 { return v&0x7F | 0x40 }); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(bus.Tuner, RegPllCtl); got != 0x45 {
		t.Errorf("reg = 0x%02X, want 0x45", got)
	}
}

func TestReadFailureStopsWrite(t *testing.T) {
	sim, dev := newTuner()
	sim.FailOn = func(op bustest.Op) error {
		if !op.Write {
			return bustest.ErrInjected
		}
		return nil
	}
	err := WriteField(dev, RegGainCtl, 0, 3, true, 1)
	if !errors.Is(err, bus.ErrBus) || !errors.Is(err, bustest.ErrInjected) {
		t.Errorf("err = %v", err)
	}
	if w := sim.Writes(bus.Tuner); len(w) != 0 {
		t.Errorf("write issued after failed read: %v", w)
	}
}

func TestReadSnapshot(t *testing.T) {
	sim := bustest.New(addr)
	demod := bus.NewDevice(sim, addr, bus.Demod)
	tuner := bus.NewDevice(sim, addr, bus.Tuner)

	sim.Set(bus.Demod, RegTLock0, 0x80)
	sim.Set(bus.Demod, RegTLock1, 0x08)
	sim.SetBytes(bus.Demod, RegSCNR, []byte{0x12, 0x34})
	sim.SetBytes(bus.Demod, RegSTSIDList, []byte{0x40, 0x10, 0x40, 0x11})
	sim.SetBytes(bus.Demod, RegSTSIDCur, []byte{0x40, 0x11})
	sim.Set(bus.Tuner, RegLoInput, 0x08)

	s, err := ReadSnapshot(demod, tuner)
	if err != nil {
		t.Fatal(err)
	}
	if s.TLock0 != 0x80 || s.TLock1 != 0x08 {
		t.Errorf("lock regs = 0x%02X 0x%02X", s.TLock0, s.TLock1)
	}
	if len(s.TSIDList) != TSIDSlots || s.TSIDList[0] != 0x4010 || s.TSIDList[1] != 0x4011 || s.TSIDList[2] != 0 {
		t.Errorf("TSID list = %04X", s.TSIDList)
	}
	if s.TSIDCur != 0x4011 {
		t.Errorf("current TSID = 0x%04X", s.TSIDCur)
	}
	if len(s.Tuner) != TunerRegCount || s.Tuner[RegLoInput] != 0x08 {
		t.Errorf("tuner regs = % X", s.Tuner)
	}

	s, err = ReadSnapshot(demod, nil)
	if err != nil || s.Tuner != nil {
		t.Errorf("demod-only snapshot = %+v, %v", s, err)
	}
}

package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/freqplan"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/tc90522"
)

// fakeFrontend locks on the channels in locks, reporting the CNR sequence
// given for the channel
type fakeFrontend struct {
	locks   map[uint32][]int64
	current uint32
	sample  int
	tunes   []uint32
	tuneErr map[uint32]error
	cancel  func()
}

func (f *fakeFrontend) Tune(ctx context.Context, req isdb.TuneRequest) (tc90522.Outcome, error) {
	f.tunes = append(f.tunes, req.Frequency)
	f.current, f.sample = req.Frequency, 0
	out := tc90522.Outcome{System: req.System, Frequency: freqplan.Resolve(req.System, req.Frequency), Iterations: 3}
	if err := f.tuneErr[req.Frequency]; err != nil {
		out.State = tc90522.Failed
		return out, err
	}
	if _, ok := f.locks[req.Frequency]; !ok {
		out.State = tc90522.TimedOut
		return out, fmt.Errorf("%w after 3 polls", tc90522.ErrTimeout)
	}
	out.State = tc90522.Locked
	out.TSID = uint16(req.Frequency)
	return out, nil
}

func (f *fakeFrontend) Status(ctx context.Context) (tc90522.Report, error) {
	if err := ctx.Err(); err != nil {
		return tc90522.Report{}, err
	}
	q := f.locks[f.current]
	v := q[f.sample%len(q)]
	f.sample++
	if f.cancel != nil && f.sample == 2 {
		f.cancel()
	}
	return tc90522.Report{Quality: v, Status: tc90522.LockStatus{Lock: true}}, nil
}

func TestScan(t *testing.T) {
	fe := &fakeFrontend{locks: map[uint32][]int64{
		13: {200000, 220000, 240000},
		27: {100000},
	}}
	cfg := DefaultConfig(isdb.Terrestrial)
	cfg.Channels = []uint32{13, 14, 27}
	cfg.Samples = 3
	cfg.SampleInterval = 0
	var seen []uint32
	cfg.OnChannel = func(r Result) { seen = append(seen, r.Channel) }

	results, err := New(fe, cfg).Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || len(seen) != 3 {
		t.Fatalf("%d results, %d callbacks", len(results), len(seen))
	}

	r := results[0]
	if !r.Locked || r.Frequency != 473142857 || r.TSID != 13 || r.Polls != 3 {
		t.Errorf("channel 13: %+v", r)
	}
	if r.CNR.Samples != 3 || math.Abs(r.CNR.Mean-22) > 1e-9 || math.Abs(r.CNR.StdDev-2) > 1e-9 {
		t.Errorf("channel 13 cnr %+v, want mean 22 stddev 2", r.CNR)
	}
	if r.CNR.Min != 20 || r.CNR.Max != 24 {
		t.Errorf("channel 13 min/max %v/%v", r.CNR.Min, r.CNR.Max)
	}

	if results[1].Locked || results[1].State != tc90522.TimedOut || results[1].Error == "" {
		t.Errorf("channel 14: %+v", results[1])
	}
	if results[2].CNR.StdDev != 0 || results[2].CNR.Mean != 10 {
		t.Errorf("channel 27 cnr %+v", results[2].CNR)
	}
	if results[0].RunID == "" || results[0].RunID != results[2].RunID {
		t.Errorf("run ids %q %q", results[0].RunID, results[2].RunID)
	}
	if n := len(Locked(results)); n != 2 {
		t.Errorf("%d locked", n)
	}
}

func TestScanStopsOnBusError(t *testing.T) {
	fe := &fakeFrontend{
		locks:   map[uint32][]int64{},
		tuneErr: map[uint32]error{2: fmt.Errorf("%w: demod read 0x80: nak", bus.ErrBus)},
	}
	results, err := Scan(context.Background(), fe, isdb.Terrestrial, []uint32{1, 2, 3}, 1)
	if !errors.Is(err, bus.ErrBus) {
		t.Fatalf("err = %v, want ErrBus", err)
	}
	if len(results) != 1 || len(fe.tunes) != 2 {
		t.Errorf("%d results after %d tunes", len(results), len(fe.tunes))
	}
}

func TestScanTunerFailureContinues(t *testing.T) {
	fe := &fakeFrontend{
		locks:   map[uint32][]int64{3: {50000}},
		tuneErr: map[uint32]error{2: tc90522.ErrTunerFailed},
	}
	results, err := Scan(context.Background(), fe, isdb.Satellite, []uint32{1, 2, 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[1].State != tc90522.Failed || !results[2].Locked {
		t.Errorf("results %+v", results)
	}
	if results[2].Frequency != freqplan.SatelliteChannelKHz(2) {
		t.Errorf("channel 3 frequency %d", results[2].Frequency)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fe := &fakeFrontend{locks: map[uint32][]int64{1: {10000}, 2: {10000}}, cancel: cancel}
	cfg := DefaultConfig(isdb.Terrestrial)
	cfg.Channels = []uint32{1, 2}
	cfg.SampleInterval = time.Millisecond

	results, err := New(fe, cfg).Scan(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(results) != 0 || len(fe.tunes) != 1 {
		t.Errorf("%d results after %d tunes", len(results), len(fe.tunes))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"default", func(*Config) {}, nil},
		{"no channels", func(c *Config) { c.Channels = nil }, ErrNoChannels},
		{"zero samples", func(c *Config) { c.Samples = 0 }, ErrInvalidConfig},
		{"too many samples", func(c *Config) { c.Samples = MaxSamples + 1 }, ErrInvalidConfig},
		{"negative interval", func(c *Config) { c.SampleInterval = -1 }, ErrInvalidConfig},
		{"bad system", func(c *Config) { c.System = 7 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(isdb.Satellite)
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScanRejectsConcurrentRun(t *testing.T) {
	s := New(&fakeFrontend{}, DefaultConfig(isdb.Terrestrial))
	s.running = true
	if _, err := s.Scan(context.Background()); !errors.Is(err, ErrScannerRunning) {
		t.Errorf("err = %v, want ErrScannerRunning", err)
	}
}

func TestSmoother(t *testing.T) {
	s := NewSmoother()
	if v := s.Update(20); v != 20 {
		t.Errorf("first value %v", v)
	}
	// small change: slow coefficient
	if v := s.Update(21); math.Abs(v-20.1) > 1e-9 {
		t.Errorf("slow step %v, want 20.1", v)
	}
	// large change: fast coefficient
	if v := s.Update(30.1); math.Abs(v-25.1) > 1e-9 {
		t.Errorf("fast step %v, want 25.1", v)
	}
	s.Reset()
	if v := s.Update(5); v != 5 {
		t.Errorf("after reset %v", v)
	}
}

func TestLockTracker(t *testing.T) {
	tr := NewLockTracker(3, 1)
	var locked, lost []uint16
	tr.SetCallbacks(
		func(i LockInfo) { locked = append(locked, i.TSID) },
		func(i LockInfo) { lost = append(lost, i.TSID) },
	)
	at := time.Unix(0, 0)
	lock := func(tsid uint16, q int64) tc90522.Report {
		at = at.Add(time.Second)
		return tc90522.Report{Status: tc90522.LockStatus{Lock: true, TSID: tsid}, Quality: q, Time: at}
	}
	none := tc90522.Report{}

	tr.Update(lock(0x4010, 200000))
	tr.Update(lock(0x4010, 240000))
	if len(locked) != 1 {
		t.Fatalf("locked callbacks %v", locked)
	}
	info, ok := tr.Active()
	if !ok || info.Reports != 2 || info.MaxCNR != 24 || !info.FirstSeen.Equal(time.Unix(1, 0)) {
		t.Errorf("active %+v", info)
	}

	tr.Update(none) // hold 2
	tr.Update(none) // hold 1: lost
	if len(lost) != 1 || lost[0] != 0x4010 {
		t.Errorf("lost callbacks %v", lost)
	}
	if _, ok := tr.Active(); !ok {
		t.Error("lock dropped before hold expired")
	}
	tr.Update(none) // hold 0
	if _, ok := tr.Active(); ok || tr.HoldCounter() != 0 {
		t.Error("lock still active after hold expired")
	}

	tr.Update(lock(0x4011, 100000))
	if len(locked) != 2 || locked[1] != 0x4011 {
		t.Errorf("locked callbacks %v", locked)
	}
}

func TestLockTrackerNeverLocked(t *testing.T) {
	tr := NewLockTracker(3, 1)
	var lost []LockInfo
	tr.SetCallbacks(nil, func(i LockInfo) { lost = append(lost, i) })
	none := tc90522.Report{Device: "bridge:1-4"}

	tr.Update(none)
	if len(lost) != 0 || tr.HoldCounter() != 0 {
		t.Fatalf("unarmed tracker fired %v, hold %d", lost, tr.HoldCounter())
	}

	tr.Expect()
	tr.Update(none) // hold 2
	if len(lost) != 0 {
		t.Fatalf("lost fired early: %v", lost)
	}
	tr.Update(none) // hold 1: window over
	if len(lost) != 1 || lost[0].Device != "bridge:1-4" {
		t.Fatalf("lost callbacks %v", lost)
	}
	tr.Update(none) // hold 0
	tr.Update(none)
	if len(lost) != 1 {
		t.Errorf("lost fired %d times", len(lost))
	}

	tr.Expect()
	tr.Update(tc90522.Report{Status: tc90522.LockStatus{Lock: true}})
	tr.Update(none)
	tr.Update(none)
	if len(lost) != 2 {
		t.Errorf("lock seen in window then dropped: lost fired %d times", len(lost))
	}
}

func TestNewCopiesConfig(t *testing.T) {
	cfg := DefaultConfig(isdb.Terrestrial)
	s := New(&fakeFrontend{}, cfg)
	if cfg.Logger != nil {
		t.Error("New modified the caller's config")
	}
	if s.config.Logger == nil {
		t.Error("scanner has no logger")
	}
}

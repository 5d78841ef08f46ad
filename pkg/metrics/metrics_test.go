package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTune(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordTune("demod@0x10", "ISDB-S", "locked", 5, 20*time.Millisecond)
	m.RecordTune("demod@0x10", "ISDB-S", "locked", 7, 30*time.Millisecond)
	m.RecordTune("demod@0x10", "ISDB-S", "timeout", 999, time.Second)

	if got := testutil.ToFloat64(m.tunes.WithLabelValues("demod@0x10", "ISDB-S", "locked")); got != 2 {
		t.Errorf("locked attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.tunes.WithLabelValues("demod@0x10", "ISDB-S", "timeout")); got != 1 {
		t.Errorf("timeout attempts = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.pollIterations); n != 1 {
		t.Errorf("poll histogram series = %d, want 1", n)
	}
}

func TestGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetLocked("d", "ISDB-T", true)
	if got := testutil.ToFloat64(m.locked.WithLabelValues("d", "ISDB-T")); got != 1 {
		t.Errorf("locked = %v", got)
	}
	m.SetLocked("d", "ISDB-T", false)
	if got := testutil.ToFloat64(m.locked.WithLabelValues("d", "ISDB-T")); got != 0 {
		t.Errorf("locked = %v", got)
	}

	m.SetCNR("d", "ISDB-T", 69.3245)
	if got := testutil.ToFloat64(m.cnr.WithLabelValues("d", "ISDB-T")); got != 69.3245 {
		t.Errorf("cnr = %v", got)
	}

	m.SetTSID("d", 0x4031)
	if got := testutil.ToFloat64(m.tsid.WithLabelValues("d")); got != 0x4031 {
		t.Errorf("tsid = %v", got)
	}

	m.RecordBusError("d")
	if got := testutil.ToFloat64(m.busErrors.WithLabelValues("d")); got != 1 {
		t.Errorf("bus errors = %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordTune("d", "ISDB-T", "locked", 1, time.Millisecond)
	m.SetLocked("d", "ISDB-T", true)
	m.SetCNR("d", "ISDB-T", 1)
	m.SetTSID("d", 1)
	m.RecordBusError("d")
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second New on the same registry did not panic")
		}
	}()
	New(reg)
}

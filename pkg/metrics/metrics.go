// Package metrics holds the Prometheus collectors of a front end. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "isdb"

// Metrics holds all collectors, labelled by device and delivery system
type Metrics struct {
	tunes          *prometheus.CounterVec   // tune attempts by result
	tuneDuration   *prometheus.HistogramVec // seconds per attempt
	pollIterations *prometheus.HistogramVec // lock polls per attempt
	locked         *prometheus.GaugeVec     // 1 while locked
	cnr            *prometheus.GaugeVec     // last CNR estimate in dB
	tsid           *prometheus.GaugeVec     // selected satellite stream
	busErrors      *prometheus.CounterVec   // failed register transactions
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"device", "system"}
	return &Metrics{
		tunes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tune_attempts_total",
				Help:      "Tune attempts by result (locked, timeout, failed, cancelled)",
			},
			append(labels, "result"),
		),
		tuneDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tune_duration_seconds",
				Help:      "Time from tuner programming to lock or give-up",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			labels,
		),
		pollIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_polls",
				Help:      "Lock register polls per tune attempt",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250, 500, 1000},
			},
			labels,
		),
		locked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "locked",
				Help:      "1 when the demodulator reports lock",
			},
			labels,
		),
		cnr: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cnr_db",
				Help:      "Carrier-to-noise ratio estimate in dB",
			},
			labels,
		),
		tsid: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tsid",
				Help:      "Transport stream ID selected on the last satellite lock",
			},
			[]string{"device"},
		),
		busErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_errors_total",
				Help:      "Register bus transactions that failed",
			},
			[]string{"device"},
		),
	}
}

// RecordTune records one tune attempt
func (m *Metrics) RecordTune(device, system, result string, polls int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tunes.WithLabelValues(device, system, result).Inc()
	m.tuneDuration.WithLabelValues(device, system).Observe(elapsed.Seconds())
	m.pollIterations.WithLabelValues(device, system).Observe(float64(polls))
}

// SetLocked updates the lock gauge
func (m *Metrics) SetLocked(device, system string, locked bool) {
	if m == nil {
		return
	}
	v := 0.0
	if locked {
		v = 1
	}
	m.locked.WithLabelValues(device, system).Set(v)
}

// SetCNR updates the CNR gauge
func (m *Metrics) SetCNR(device, system string, db float64) {
	if m == nil {
		return
	}
	m.cnr.WithLabelValues(device, system).Set(db)
}

// SetTSID updates the selected stream gauge
func (m *Metrics) SetTSID(device string, tsid uint16) {
	if m == nil {
		return
	}
	m.tsid.WithLabelValues(device).Set(float64(tsid))
}

// RecordBusError counts a failed register transaction
func (m *Metrics) RecordBusError(device string) {
	if m == nil {
		return
	}
	m.busErrors.WithLabelValues(device).Inc()
}

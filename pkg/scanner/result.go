package scanner

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/herlein/isdbtune/pkg/tc90522"
)

// Result holds the outcome of one scanned channel
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Channel   uint32        `json:"channel" yaml:"channel"`     // as requested
	Frequency uint32        `json:"frequency" yaml:"frequency"` // resolved, Hz or kHz
	State     tc90522.State `json:"state" yaml:"state"`
	Locked    bool          `json:"locked" yaml:"locked"`
	TSID      uint16        `json:"tsid,omitempty" yaml:"tsid,omitempty"`
	Polls     int           `json:"polls" yaml:"polls"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`

	// CNR statistics over the samples, dB
	CNR       CNRStats  `json:"cnr" yaml:"cnr"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// CNRStats summarises CNR samples in dB
type CNRStats struct {
	Samples int     `json:"samples" yaml:"samples"`
	Mean    float64 `json:"mean" yaml:"mean"`
	StdDev  float64 `json:"stddev" yaml:"stddev"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
}

// NewCNRStats computes the statistics of samples. The standard deviation of
// fewer than two samples is zero.
func NewCNRStats(samples []float64) CNRStats {
	if len(samples) == 0 {
		return CNRStats{}
	}
	s := CNRStats{
		Samples: len(samples),
		Min:     floats.Min(samples),
		Max:     floats.Max(samples),
	}
	if len(samples) == 1 {
		s.Mean = samples[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(samples, nil)
	return s
}

func (r Result) String() string {
	if !r.Locked {
		return fmt.Sprintf("ch %-8d %-10d %s", r.Channel, r.Frequency, r.State)
	}
	return fmt.Sprintf("ch %-8d %-10d locked tsid=0x%04X cnr=%.2f±%.2f dB", r.Channel, r.Frequency, r.TSID, r.CNR.Mean, r.CNR.StdDev)
}

// Locked returns the results that locked
func Locked(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Locked {
			out = append(out, r)
		}
	}
	return out
}

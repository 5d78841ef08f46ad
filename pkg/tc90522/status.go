package tc90522

import (
	"context"
	"fmt"
	"time"

	"github.com/herlein/isdbtune/pkg/cnr"
	"github.com/herlein/isdbtune/pkg/fixedpoint"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/registers"
)

// Report is the answer to a status query
type Report struct {
	Device  string              `json:"device" yaml:"device"`
	System  isdb.DeliverySystem `json:"system" yaml:"system"`
	State   State               `json:"state" yaml:"state"`
	Status  LockStatus          `json:"status" yaml:"status"`
	Raw     uint32              `json:"cnr_raw" yaml:"cnr_raw"`
	Quality int64               `json:"cnr" yaml:"cnr"` // dB x 10000
	Time    time.Time           `json:"time" yaml:"time"`
}

// DB returns the quality in decibels
func (r Report) DB() float64 {
	return cnr.DB(r.Quality)
}

// RawCNR reads the unconverted carrier-to-noise counter of the current
// delivery system
func (d *Demod) RawCNR(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return d.rawCNR(d.System())
}

func (d *Demod) rawCNR(sys isdb.DeliverySystem) (uint32, error) {
	reg, n := uint8(registers.RegTCNR), registers.TCNRLen
	if sys == isdb.Satellite {
		reg, n = registers.RegSCNR, registers.SCNRLen
	}
	data, err := d.dev.Read(reg, n)
	if err != nil {
		return 0, fmt.Errorf("failed to read CNR: %w", err)
	}
	return uint32(fixedpoint.BytesToUint(data, n)), nil
}

// ReadStatus returns the lock status with a fresh CNR estimate
func (d *Demod) ReadStatus(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	d.mu.Lock()
	r := Report{
		Device: d.dev.String(),
		System: d.system,
		State:  d.state,
		Status: d.status,
	}
	d.mu.Unlock()

	raw, err := d.rawCNR(r.System)
	if err != nil {
		return Report{}, err
	}
	r.Raw = raw
	r.Quality = cnr.Estimate(r.System, raw)
	r.Time = time.Now()
	return r, nil
}

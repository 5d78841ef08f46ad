package tc90522

import (
	"context"
	"fmt"

	"github.com/herlein/isdbtune/pkg/fixedpoint"
	"github.com/herlein/isdbtune/pkg/freqplan"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/registers"
)

// Tune resolves the request frequency, programs the tuner and polls until
// the demodulator locks. A request with Retune unset leaves the hardware and
// the lock status untouched.
func (d *Demod) Tune(ctx context.Context, req isdb.TuneRequest, tuner Tuner) (Outcome, error) {
	d.tuneMu.Lock()
	defer d.tuneMu.Unlock()

	d.mu.Lock()
	d.system = req.System
	if !req.Retune {
		out := Outcome{State: d.state, System: req.System, TSID: d.status.TSID}
		d.mu.Unlock()
		return out, nil
	}
	d.status = LockStatus{}
	d.state = Polling
	d.mu.Unlock()

	out := Outcome{
		State:     Polling,
		System:    req.System,
		Frequency: freqplan.Resolve(req.System, req.Frequency),
	}
	log := d.opts.Logger.With("device", d.dev.String(), "system", req.System.String(), "freq", out.Frequency)

	if tuner == nil {
		return d.fail(out, fmt.Errorf("%w: no tuner", ErrTunerFailed))
	}
	if err := tuner.SetFrequency(ctx, req.System, out.Frequency); err != nil {
		log.Warn("tuner rejected frequency", "err", err)
		return d.fail(out, fmt.Errorf("%w: %w", ErrTunerFailed, err))
	}

	poll := d.pollTerrestrial
	if req.System == isdb.Satellite {
		poll = d.pollSatellite
	}
	for out.Iterations < d.opts.MaxPolls {
		out.Iterations++
		st, err := poll(req.StreamID)
		if err != nil {
			return d.fail(out, err)
		}
		if st.Lock {
			out.State = Locked
			out.TSID = st.TSID
			d.mu.Lock()
			d.status = st
			d.state = Locked
			d.mu.Unlock()
			log.Debug("locked", "polls", out.Iterations, "tsid", st.TSID)
			return out, nil
		}
		if st.RetryOverflow {
			d.setStatus(LockStatus{RetryOverflow: true})
			log.Debug("retry overflow", "polls", out.Iterations)
			return d.fail(out, ErrRetryOverflow)
		}
		d.setStatus(st)
		if out.Iterations == d.opts.MaxPolls {
			break
		}
		if err := d.pause(ctx); err != nil {
			d.setStatus(LockStatus{})
			d.setState(Idle)
			out.State = Idle
			return out, err
		}
	}

	d.setStatus(LockStatus{})
	d.setState(TimedOut)
	out.State = TimedOut
	log.Debug("no lock", "polls", out.Iterations)
	return out, fmt.Errorf("%w after %d polls", ErrTimeout, out.Iterations)
}

func (d *Demod) fail(out Outcome, err error) (Outcome, error) {
	d.mu.Lock()
	if !d.status.RetryOverflow {
		d.status = LockStatus{}
	}
	d.state = Failed
	d.mu.Unlock()
	out.State = Failed
	return out, err
}

// pollTerrestrial reads both lock registers once
func (d *Demod) pollTerrestrial(uint16) (LockStatus, error) {
	r0, err := d.dev.ReadReg(registers.RegTLock0)
	if err != nil {
		return LockStatus{}, err
	}
	r1, err := d.dev.ReadReg(registers.RegTLock1)
	if err != nil {
		return LockStatus{}, err
	}
	st := LockStatus{
		RetryOverflow: r0&registers.TRetryOverflow != 0,
		Lock0:         r0&registers.TLock0NotLocked == 0,
		Lock1:         r1&registers.TLock1Locked != 0,
	}
	if st.Lock0 && st.Lock1 {
		st.Signal, st.Carrier, st.Lock = true, true, true
	}
	return st, nil
}

// pollSatellite checks carrier lock and the TSID table once. A slot is
// selected when its TSID equals id or its index equals id, and confirmed by
// reading the selected TSID back.
func (d *Demod) pollSatellite(id uint16) (LockStatus, error) {
	var st LockStatus

	status, err := d.dev.ReadReg(registers.RegSStatus)
	if err != nil {
		return st, err
	}
	if status&registers.SCarrierUnlock != 0 {
		return st, nil
	}
	st.CarrierLock = true

	first, err := d.dev.Read(registers.RegSTSIDList, registers.TSIDFieldLen)
	if err != nil {
		return st, err
	}
	if fixedpoint.BytesToUint(first, registers.TSIDFieldLen) == 0 {
		return st, nil
	}
	st.ValidTSID = true

	if _, err := d.dev.ReadReg(registers.RegSStatus); err != nil {
		return st, err
	}
	list, err := d.dev.Read(registers.RegSTSIDList, registers.TSIDListLen)
	if err != nil {
		return st, err
	}

	for i := 0; i < registers.TSIDSlots; i++ {
		tsid := uint16(fixedpoint.BytesToUint(list[2*i:], registers.TSIDFieldLen))
		if tsid == 0 || tsid == 0xFFFF {
			continue
		}
		if id != tsid && id != uint16(i) {
			continue
		}
		if err := d.dev.Write(registers.RegSTSIDSel0, uint8(tsid>>8)); err != nil {
			return st, err
		}
		if err := d.dev.Write(registers.RegSTSIDSel1, uint8(tsid)); err != nil {
			return st, err
		}
		cur, err := d.dev.Read(registers.RegSTSIDCur, registers.TSIDFieldLen)
		if err != nil {
			return st, err
		}
		if uint16(fixedpoint.BytesToUint(cur, registers.TSIDFieldLen)) == tsid {
			st.MatchedTSID = true
			st.TSID = tsid
			st.Signal, st.Carrier, st.Lock = true, true, true
			return st, nil
		}
	}
	return st, nil
}

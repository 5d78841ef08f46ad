// Package frontend ties one demodulator to its tuner. It retries tunes that
// fail to lock, records metrics and logs every attempt.
package frontend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/cnr"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/metrics"
	"github.com/herlein/isdbtune/pkg/tc90522"
)

// RetryPolicy bounds the retries of a tune that did not lock. Zero
// MaxRetries disables retrying.
type RetryPolicy struct {
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// DefaultRetry is used by tools when no policy is configured
var DefaultRetry = RetryPolicy{
	MaxRetries:      2,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// initializer is implemented by tuners needing a power-up sequence
type initializer interface {
	Init(ctx context.Context) error
}

// Frontend is a demodulator and the tuner feeding it
type Frontend struct {
	Demod   *tc90522.Demod
	Tuner   tc90522.Tuner
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Retry   RetryPolicy
}

func (f *Frontend) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// Name identifies the front end in logs and metrics
func (f *Frontend) Name() string {
	return f.Demod.Device().String()
}

// Init powers up the tuner when it has a power-up sequence
func (f *Frontend) Init(ctx context.Context) error {
	in, ok := f.Tuner.(initializer)
	if !ok {
		return nil
	}
	err := in.Init(ctx)
	if errors.Is(err, bus.ErrBus) {
		f.Metrics.RecordBusError(f.Name())
	}
	return err
}

// Tune runs a tune request. Attempts that end in tc90522.ErrTimeout are
// retried under the retry policy; any other error ends the tune.
func (f *Frontend) Tune(ctx context.Context, req isdb.TuneRequest) (tc90522.Outcome, error) {
	log := f.logger().With("device", f.Name(), "request", req.String())
	if !req.Retune {
		return f.Demod.Tune(ctx, req, f.Tuner)
	}

	var (
		out     tc90522.Outcome
		attempt int
	)
	op := func() error {
		attempt++
		start := time.Now()
		var err error
		out, err = f.Demod.Tune(ctx, req, f.Tuner)
		f.record(req.System, out, err, time.Since(start))
		if err == nil {
			log.Info("locked", "attempt", attempt, "polls", out.Iterations, "tsid", out.TSID)
			return nil
		}
		if errors.Is(err, tc90522.ErrTimeout) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("tune attempt failed, retrying", "attempt", attempt, "err", err, "wait", wait)
	}

	err := backoff.RetryNotify(op, f.Retry.backOff(ctx), notify)
	if err != nil {
		log.Error("tune failed", "attempts", attempt, "err", err)
	}
	return out, err
}

func (f *Frontend) record(sys isdb.DeliverySystem, out tc90522.Outcome, err error, elapsed time.Duration) {
	name, system := f.Name(), sys.String()
	result := "locked"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "cancelled"
	case errors.Is(err, tc90522.ErrRetryOverflow):
		result = "overflow"
	case errors.Is(err, tc90522.ErrTimeout):
		result = "timeout"
	default:
		result = "failed"
	}
	if errors.Is(err, bus.ErrBus) {
		f.Metrics.RecordBusError(name)
	}
	f.Metrics.RecordTune(name, system, result, out.Iterations, elapsed)
	f.Metrics.SetLocked(name, system, err == nil)
	if err == nil && sys == isdb.Satellite {
		f.Metrics.SetTSID(name, out.TSID)
	}
}

// Status reads the lock status and a fresh CNR estimate
func (f *Frontend) Status(ctx context.Context) (tc90522.Report, error) {
	r, err := f.Demod.ReadStatus(ctx)
	if err != nil {
		if errors.Is(err, bus.ErrBus) {
			f.Metrics.RecordBusError(f.Name())
		}
		return r, err
	}
	system := r.System.String()
	f.Metrics.SetLocked(r.Device, system, r.Status.Lock)
	f.Metrics.SetCNR(r.Device, system, cnr.DB(r.Quality))
	return r, nil
}

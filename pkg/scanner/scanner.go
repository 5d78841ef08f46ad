// Package scanner tunes through a list of channels, recording lock and
// carrier-to-noise statistics for each.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/herlein/isdbtune/pkg/bus"
	"github.com/herlein/isdbtune/pkg/cnr"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/tc90522"
)

// Frontend is what the scanner tunes, satisfied by *frontend.Frontend
type Frontend interface {
	Tune(ctx context.Context, req isdb.TuneRequest) (tc90522.Outcome, error)
	Status(ctx context.Context) (tc90522.Report, error)
}

// Scanner runs channel scans on one front end
type Scanner struct {
	fe     Frontend
	config *Config

	mu      sync.Mutex
	running bool
}

// New creates a Scanner with the given front end and a copy of config
func New(fe Frontend, config *Config) *Scanner {
	c := *config
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return &Scanner{fe: fe, config: &c}
}

// Scan scans channels of sys taking samples CNR reads on each locked channel
func Scan(ctx context.Context, fe Frontend, sys isdb.DeliverySystem, channels []uint32, samples int) ([]Result, error) {
	cfg := DefaultConfig(sys)
	cfg.Channels = channels
	cfg.Samples = samples
	return New(fe, cfg).Scan(ctx)
}

// IsRunning reports whether a scan is in progress
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Scan tunes every configured channel in order. Channels that fail to lock
// are recorded and the scan goes on; a bus error or cancellation stops the
// scan and returns the results gathered so far.
func (s *Scanner) Scan(ctx context.Context) ([]Result, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrScannerRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runID := uuid.NewString()
	log := s.config.Logger.With("run", runID, "system", s.config.System.String())
	log.Info("scan started", "channels", len(s.config.Channels))

	results := make([]Result, 0, len(s.config.Channels))
	for _, ch := range s.config.Channels {
		r, err := s.scanChannel(ctx, ch)
		r.RunID = runID
		if err != nil {
			log.Warn("scan stopped", "channel", ch, "err", err)
			return results, err
		}
		results = append(results, r)
		log.Debug("channel scanned", "channel", ch, "locked", r.Locked, "cnr", r.CNR.Mean)
		if s.config.OnChannel != nil {
			s.config.OnChannel(r)
		}
	}
	log.Info("scan finished", "locked", len(Locked(results)))
	return results, nil
}

func (s *Scanner) scanChannel(ctx context.Context, ch uint32) (Result, error) {
	req := isdb.TuneRequest{
		System:    s.config.System,
		Frequency: ch,
		StreamID:  s.config.StreamID,
		Retune:    true,
	}
	out, err := s.fe.Tune(ctx, req)
	r := Result{
		Channel:   ch,
		Frequency: out.Frequency,
		State:     out.State,
		Polls:     out.Iterations,
		Timestamp: time.Now(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return r, ctx.Err()
		}
		if errors.Is(err, bus.ErrBus) {
			return r, err
		}
		r.Error = err.Error()
		return r, nil
	}
	r.Locked = out.State == tc90522.Locked
	r.TSID = out.TSID

	samples := make([]float64, 0, s.config.Samples)
	for i := 0; i < s.config.Samples; i++ {
		if i > 0 {
			if err := sleep(ctx, s.config.SampleInterval); err != nil {
				return r, err
			}
		}
		rep, err := s.fe.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			return r, err
		}
		samples = append(samples, cnr.DB(rep.Quality))
	}
	r.CNR = NewCNRStats(samples)
	return r, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

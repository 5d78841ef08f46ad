// isdb-monitor: Hold a front end tuned and export its status
//
// The front end is tuned once, then the lock status and CNR are read at a
// fixed interval. Readings are exported on a Prometheus endpoint and, when
// enabled, the latest one is published to an MQTT broker. A lost lock, or no
// lock within a few reads of a tune, triggers a retune.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/config"
	"github.com/herlein/isdbtune/pkg/device"
	"github.com/herlein/isdbtune/pkg/frontend"
	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/metrics"
	"github.com/herlein/isdbtune/pkg/publish"
	"github.com/herlein/isdbtune/pkg/scanner"
	"github.com/herlein/isdbtune/pkg/tc90522"
)

func main() {
	flags := config.BindFlags(pflag.CommandLine)
	freq := pflag.Uint32P("freq", "f", 0, "Frequency or channel code")
	stream := pflag.Uint16P("stream", "t", 0, "Satellite TSID or slot index")
	interval := pflag.DurationP("interval", "i", time.Second, "Status read interval")
	listen := pflag.String("listen", "", "Prometheus listen address (overrides config)")
	pflag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("listen") {
		cfg.Metrics.Listen = *listen
	}
	logger, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dev, err := device.Open(cfg, logger, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()
	fe := dev.Frontend

	if cfg.Metrics.Listen != "" {
		go serveMetrics(ctx, cfg.Metrics, reg, logger)
	}

	var pub *publish.Publisher
	if cfg.MQTT.Enabled {
		pub, err = publish.Connect(cfg.MQTT.Config, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer pub.Close()
	}

	if err := fe.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Tuner init failed: %v\n", err)
		os.Exit(1)
	}

	retune := make(chan struct{}, 1)
	tracker := scanner.NewLockTracker(scanner.DefaultHoldMax, scanner.DefaultLostThreshold)
	tracker.SetCallbacks(
		func(l scanner.LockInfo) {
			logger.Info("lock acquired", "device", l.Device, "tsid", fmt.Sprintf("0x%04X", l.TSID), "cnr", l.CNR)
		},
		func(l scanner.LockInfo) {
			if l.Reports == 0 {
				logger.Warn("no lock after tune", "device", l.Device)
			} else {
				logger.Warn("lock lost", "device", l.Device, "held", l.LastSeen.Sub(l.FirstSeen).Round(time.Second))
			}
			select {
			case retune <- struct{}{}:
			default:
			}
		},
	)

	req := isdb.TuneRequest{System: cfg.System, Frequency: *freq, StreamID: *stream, Retune: true}
	if _, err := fe.Tune(ctx, req); err != nil {
		logger.Warn("initial tune did not lock", "err", err)
	}
	tracker.Expect()

	var last publish.LastReport
	if pub != nil {
		go pub.Run(ctx, cfg.MQTT.Interval, last.Status)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("monitor stopped")
			return
		case <-retune:
			retuneFrontend(ctx, fe, req, logger)
			tracker.Expect()
		case <-ticker.C:
			r, err := fe.Status(ctx)
			if err != nil {
				logger.Warn("status read failed", "err", err)
				continue
			}
			last.Set(r)
			tracker.Update(r)
		}
	}
}

func retuneFrontend(ctx context.Context, fe *frontend.Frontend, req isdb.TuneRequest, logger *slog.Logger) {
	out, err := fe.Tune(ctx, req)
	if err != nil {
		if !errors.Is(err, tc90522.ErrTimeout) {
			logger.Error("retune failed", "err", err)
		}
		return
	}
	logger.Info("retuned", "polls", out.Iterations)
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", "addr", cfg.Listen, "path", cfg.Path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "err", err)
	}
}

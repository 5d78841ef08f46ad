// isdb-tune: Tune a front end and report the lock status
//
// The frequency is either a physical frequency (Hz for ISDB-T, kHz for
// ISDB-S) or a channel code understood by the frequency plan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/config"
	"github.com/herlein/isdbtune/pkg/device"
	"github.com/herlein/isdbtune/pkg/freqplan"
	"github.com/herlein/isdbtune/pkg/isdb"
)

func main() {
	flags := config.BindFlags(pflag.CommandLine)
	freq := pflag.Uint32P("freq", "f", 0, "Frequency or channel code")
	stream := pflag.Uint16P("stream", "t", 0, "Satellite TSID or slot index (0-7)")
	initTuner := pflag.Bool("init", false, "Run the tuner power-up sequence first")
	status := pflag.Bool("status", true, "Read the CNR after tuning")
	timeout := pflag.Duration("timeout", 10*time.Second, "Overall timeout")
	verbose := pflag.BoolP("verbose", "v", false, "Verbose output")
	pflag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	dev, err := device.Open(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()
	fe := dev.Frontend

	if *verbose {
		fmt.Printf("Front end: %s, profile %s\n", fe.Name(), dev.Profile)
	}

	if *initTuner {
		if err := fe.Init(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Tuner init failed: %v\n", err)
			os.Exit(1)
		}
	}

	req := isdb.TuneRequest{System: cfg.System, Frequency: *freq, StreamID: *stream, Retune: true}
	rule := freqplan.Match(freqplan.Rules(cfg.System), *freq)
	if *verbose {
		fmt.Printf("Request %s (%s) -> %d %s\n", req, rule.Name, freqplan.Resolve(cfg.System, *freq), cfg.System.Unit())
	}

	start := time.Now()
	out, err := fe.Tune(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Tune failed after %d polls: %v\n", out.Iterations, err)
		os.Exit(1)
	}
	fmt.Printf("Locked on %d %s in %v (%d polls)", out.Frequency, cfg.System.Unit(), time.Since(start).Round(time.Millisecond), out.Iterations)
	if cfg.System == isdb.Satellite {
		fmt.Printf(", TSID 0x%04X", out.TSID)
	}
	fmt.Println()

	if *status {
		r, err := fe.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Status read failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("CNR: %.2f dB (raw 0x%X)\n", r.DB(), r.Raw)
		if *verbose {
			fmt.Printf("Status: %s\n", r.Status)
		}
	}
}

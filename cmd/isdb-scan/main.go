// isdb-scan: Scan the channels of a delivery system
//
// Every channel of the frequency plan (or the ones given with --channels) is
// tuned in turn; locked channels are sampled for CNR statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/herlein/isdbtune/pkg/config"
	"github.com/herlein/isdbtune/pkg/device"
	"github.com/herlein/isdbtune/pkg/scanner"
)

func main() {
	flags := config.BindFlags(pflag.CommandLine)
	channels := pflag.UintSlice("channels", nil, "Channels to scan (default: every channel of the system)")
	samples := pflag.IntP("samples", "n", 0, "CNR samples per locked channel (default from config)")
	stream := pflag.Uint16P("stream", "t", 0, "Satellite TSID or slot index")
	output := pflag.StringP("output", "o", "", "Write results as YAML to this file")
	lockedOnly := pflag.BoolP("locked", "l", false, "Print locked channels only")
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

	dev, err := device.Open(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	if err := dev.Frontend.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Tuner init failed: %v\n", err)
		os.Exit(1)
	}

	scanCfg := scanner.DefaultConfig(cfg.System)
	scanCfg.Samples = cfg.Scan.Samples
	scanCfg.SampleInterval = cfg.Scan.SampleInterval
	scanCfg.StreamID = *stream
	scanCfg.Logger = logger
	if *samples > 0 {
		scanCfg.Samples = *samples
	}
	if len(*channels) > 0 {
		scanCfg.Channels = scanCfg.Channels[:0]
		for _, ch := range *channels {
			scanCfg.Channels = append(scanCfg.Channels, uint32(ch))
		}
	}
	scanCfg.OnChannel = func(r scanner.Result) {
		if r.Locked || !*lockedOnly {
			fmt.Println(r)
		}
	}

	fmt.Printf("Scanning %d %s channels on %s\n", len(scanCfg.Channels), cfg.System, dev.Frontend.Name())
	results, err := scanner.New(dev.Frontend, scanCfg).Scan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Scan stopped: %v\n", err)
	}
	fmt.Printf("\n%d of %d channels locked\n", len(scanner.Locked(results)), len(results))

	if *output != "" {
		data, merr := yaml.Marshal(results)
		if merr != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to marshal results: %v\n", merr)
			os.Exit(1)
		}
		if werr := os.WriteFile(*output, data, 0644); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write results: %v\n", werr)
			os.Exit(1)
		}
		fmt.Printf("Results saved to: %s\n", *output)
	}
	if err != nil {
		os.Exit(1)
	}
}

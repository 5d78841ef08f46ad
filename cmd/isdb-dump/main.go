// isdb-dump: Dump front end registers to a YAML file
//
// This tool reads the demodulator status block and the tuner register file
// and saves them to a YAML file. With --restore, the gain and filter
// registers of a saved dump are written back to the tuner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/herlein/isdbtune/pkg/config"
	"github.com/herlein/isdbtune/pkg/device"
	"github.com/herlein/isdbtune/pkg/registers"
)

func main() {
	flags := config.BindFlags(pflag.CommandLine)
	outputFile := pflag.StringP("output", "o", "", "Output file path (default: etc/isdbtune/<device>.yaml)")
	stdout := pflag.Bool("stdout", false, "Write the dump to stdout instead of a file")
	noTuner := pflag.Bool("no-tuner", false, "Skip the tuner register file")
	restore := pflag.StringP("restore", "r", "", "Restore tuner gain registers from this dump")
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

	dev, err := device.Open(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	if *restore != "" {
		dump, err := config.LoadFromFile(*restore)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := config.ApplyToDevice(dev.Tuner, dump); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to restore: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Restored tuner gain registers from %s (dumped %s)\n", *restore, dump.Timestamp.Format("2006-01-02 15:04:05"))
		return
	}

	tuner := dev.Tuner
	if *noTuner {
		tuner = nil
	}
	if *verbose {
		fmt.Fprintln(os.Stderr, "Reading registers...")
	}
	dump, err := config.DumpFromDevice(dev.Demod, tuner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to dump registers: %v\n", err)
		os.Exit(1)
	}

	if *stdout {
		data, err := yaml.Marshal(dump)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to marshal dump: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	path := *outputFile
	if path == "" {
		path = config.GetDumpPath(fmt.Sprintf("demod-%02x", cfg.Bus.Address))
	}
	if err := config.SaveToFile(dump, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to save dump: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registers saved to: %s\n", path)

	if *verbose {
		printSummary(&dump.Registers)
	}
}

func printSummary(s *registers.Snapshot) {
	fmt.Println("\nRegister Summary:")
	fmt.Printf("  T lock:       0x%02X 0x%02X\n", s.TLock0, s.TLock1)
	fmt.Printf("  T CNR:        % X\n", s.TCNR)
	fmt.Printf("  S status:     0x%02X\n", s.SStatus)
	fmt.Printf("  S CNR:        % X\n", s.SCNR)
	fmt.Printf("  TSID table:  ")
	for _, id := range s.TSIDList {
		fmt.Printf(" %04X", id)
	}
	fmt.Println()
	fmt.Printf("  TSID current: 0x%04X\n", s.TSIDCur)
	if len(s.Tuner) > 0 {
		fmt.Printf("  Tuner:        % X\n", s.Tuner)
	}
}

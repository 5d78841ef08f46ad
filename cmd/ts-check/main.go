// ts-check: Verify a capture taken with the tuner in test pattern mode
//
// The capture must start with the first word of the pattern. Satellite
// tuners are numbered 0 and 1, as are terrestrial ones.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/isdb"
	"github.com/herlein/isdbtune/pkg/lfsr"
)

func main() {
	system := pflag.StringP("system", "s", "isdb-s", "Delivery system of the tuner: isdb-s or isdb-t")
	tuner := pflag.IntP("tuner", "n", 0, "Tuner number, 0 or 1")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] capture-file\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	sys, err := isdb.ParseDeliverySystem(*system)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *tuner < 0 || *tuner > 1 {
		fmt.Fprintf(os.Stderr, "Error: tuner must be 0 or 1\n")
		os.Exit(2)
	}

	f, err := os.Open(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: can not open file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	seed := lfsr.Seed(sys, *tuner)
	n, err := lfsr.Verify(f, seed)
	switch {
	case err == nil:
		fmt.Printf("check OK (%d bytes, seed 0x%04X)\n", n, seed)
	case errors.Is(err, lfsr.ErrMismatch), errors.Is(err, lfsr.ErrTruncated):
		fmt.Printf("check NG: %v\n", err)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

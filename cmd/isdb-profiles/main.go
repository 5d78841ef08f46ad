// isdb-profiles: List, show and generate tuner gain profiles
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/profiles"
)

func main() {
	generate := pflag.StringP("generate", "g", "", "Write every built-in profile as YAML into this directory")
	show := pflag.String("show", "", "Show a profile (name or YAML file) and the register codes it produces")
	pflag.Parse()

	if *generate != "" {
		if err := profiles.GenerateProfiles(*generate); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating profiles: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Profiles written to: %s\n", *generate)
		return
	}

	if *show != "" {
		p, err := profiles.Resolve(*show)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printProfile(p)
		return
	}

	fmt.Println("Built-in profiles:")
	for _, name := range profiles.Names() {
		p, _ := profiles.Lookup(name)
		fmt.Printf("  %-14s %s\n", name, p.Description)
	}
}

func printProfile(p *profiles.Profile) {
	g, err := p.Gain()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Profile:      %s\n", p)
	if p.Description != "" {
		fmt.Printf("Description:  %s\n", p.Description)
	}
	fmt.Printf("LNA:          %d dB (code %d)\n", p.LNAdB, g.LNA)
	fmt.Printf("Loop-through: %d dB (code %d)\n", p.LPTdB, g.LPT)
	fmt.Printf("Output amp:   %d dB (code 0x%X)\n", p.AmpOutdB, g.AmpOut)
	fmt.Printf("Gain byte:    0x%02X\n", g.GainByte())
}

// lsbridge: List all connected USB I2C bridges
//
// This tool enumerates the bridges connected to the system and displays
// their serial numbers and basic information.
package main

import (
	"fmt"
	"os"

	"github.com/google/gousb"
	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/bridge"
)

func main() {
	verbose := pflag.BoolP("verbose", "v", false, "Verbose output (show additional device details)")
	ping := pflag.Bool("ping", false, "Ping each bridge")
	pflag.Parse()

	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	devices, err := bridge.FindAllDevices(usbCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No I2C bridges found")
		os.Exit(0)
	}

	fmt.Printf("Found %d bridge(s):\n", len(devices))
	fmt.Println()

	for i, device := range devices {
		defer device.Close()

		if *verbose {
			fmt.Printf("Device #%d:\n", i)
			fmt.Printf("  Serial:       %s\n", device.Serial)
			fmt.Printf("  Bus:Address:  %d:%d\n", device.Bus, device.Address)
			fmt.Printf("  Manufacturer: %s\n", device.Manufacturer)
			fmt.Printf("  Product:      %s\n", device.Product)

			buildType, err := device.GetBuildType()
			if err == nil {
				fmt.Printf("  Firmware:     %s\n", buildType)
			} else {
				fmt.Printf("  Firmware:     (error: %v)\n", err)
			}
		} else {
			fmt.Printf("  #%d  %s  %d:%d\n", i, device.Serial, device.Bus, device.Address)
		}

		if *ping {
			if err := device.Ping([]byte("PING")); err != nil {
				fmt.Printf("  Ping:         failed: %v\n", err)
			} else {
				fmt.Printf("  Ping:         OK\n")
			}
		}
		if *verbose {
			fmt.Println()
		}
	}

	if !*verbose {
		fmt.Println()
		fmt.Println("Use -d flag with other tools to select a bridge:")
		fmt.Println("  -d \"#0\"      Select by index")
		fmt.Println("  -d \"1:10\"    Select by bus:address")
		fmt.Println("  -d \"009a\"    Select by serial (if unique)")
	}
}

// bridge-reset resets I2C bridges to recover from USB or bus errors
//
// By default the I2C master of each bridge is reset; with --usb the USB
// device itself is reset.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gousb"
	"github.com/spf13/pflag"

	"github.com/herlein/isdbtune/pkg/bridge"
)

func main() {
	usbReset := pflag.Bool("usb", false, "Reset the USB device instead of the I2C master")
	attempts := pflag.Int("attempts", 3, "Attempts to find devices")
	pflag.Parse()

	ctx := gousb.NewContext()
	defer ctx.Close()

	// Try multiple times to find devices
	for attempt := 0; attempt < *attempts; attempt++ {
		devs, err := bridge.FindAllDevices(ctx)
		if err != nil {
			fmt.Printf("Attempt %d: Error finding devices: %v\n", attempt+1, err)
			time.Sleep(time.Second)
			continue
		}

		if len(devs) == 0 {
			fmt.Printf("Attempt %d: No devices found\n", attempt+1)
			time.Sleep(time.Second)
			continue
		}

		fmt.Printf("Found %d device(s)\n", len(devs))
		failed := false
		for i, dev := range devs {
			fmt.Printf("  Device %d: %s\n", i, dev.Serial)

			if *usbReset {
				err = dev.ResetUSB()
			} else {
				err = dev.ResetBus()
			}
			if err != nil {
				fmt.Printf("    Reset failed: %v\n", err)
				failed = true
			} else {
				fmt.Printf("    Reset OK\n")
			}
			dev.Close()
		}
		if failed {
			os.Exit(1)
		}
		os.Exit(0)
	}

	fmt.Printf("Failed to find/reset devices after %d attempts\n", *attempts)
	os.Exit(1)
}

package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// DeviceSelector specifies how to identify a bridge
// Supported formats:
//   - ""           : Use first available device
//   - "serial"     : Match by serial number (e.g., "009a")
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth device, 0-indexed (e.g., "#0", "#1")
type DeviceSelector string

// selection is a parsed DeviceSelector
type selection struct {
	index   int // with byIndex; "" selects 0
	bus     int
	addr    int
	serial  string
	byLoc   bool
	byIndex bool
}

func (s DeviceSelector) parse() (selection, error) {
	sel := string(s)
	switch {
	case sel == "":
		return selection{byIndex: true}, nil

	case strings.HasPrefix(sel, "#"):
		index, err := strconv.Atoi(sel[1:])
		if err != nil || index < 0 {
			return selection{}, fmt.Errorf("invalid device index: %s", sel)
		}
		return selection{byIndex: true, index: index}, nil

	case strings.Contains(sel, ":"):
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return selection{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return selection{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return selection{byLoc: true, bus: bus, addr: addr}, nil
	}
	return selection{serial: sel}, nil
}

// choose picks the selected device from devices and closes the others
func (s selection) choose(devices []*Device) (*Device, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	closeAllBut := func(keep *Device) {
		for _, d := range devices {
			if d != keep {
				d.Close()
			}
		}
	}

	if s.byIndex {
		if s.index >= len(devices) {
			closeAllBut(nil)
			return nil, fmt.Errorf("%w: index %d out of range (found %d devices)", ErrNoDevice, s.index, len(devices))
		}
		closeAllBut(devices[s.index])
		return devices[s.index], nil
	}

	var matches []*Device
	for _, d := range devices {
		if (s.byLoc && d.Bus == s.bus && d.Address == s.addr) || (!s.byLoc && d.Serial == s.serial) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		closeAllBut(nil)
		if s.byLoc {
			return nil, fmt.Errorf("%w at bus %d address %d", ErrNoDevice, s.bus, s.addr)
		}
		return nil, fmt.Errorf("%w with serial %s", ErrNoDevice, s.serial)
	case 1:
		closeAllBut(matches[0])
		return matches[0], nil
	}
	closeAllBut(nil)
	return nil, fmt.Errorf("multiple devices (%d) found with serial %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", len(matches), s.serial)
}

// SelectDevice opens the bridge matching the selector
func SelectDevice(usbCtx *gousb.Context, selector DeviceSelector) (*Device, error) {
	sel, err := selector.parse()
	if err != nil {
		return nil, err
	}
	devices, err := FindAllDevices(usbCtx)
	if err != nil {
		return nil, err
	}
	return sel.choose(devices)
}

// DeviceFlagUsage returns the usage string for the device selector flag
func DeviceFlagUsage() string {
	return `Bridge selector. Formats:
    ""        - Use first available device
    "serial"  - Match by serial number (e.g., "009a")
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth device, 0-indexed (e.g., "#0", "#1")`
}

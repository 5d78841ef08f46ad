// Package bridge drives a USB-to-I2C bridge through its EP5 bulk command
// protocol. A Device implements bus.Bus, so the demodulator and tuner can be
// reached from a workstation without a native I2C adapter.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
)

// inEndpoint is the EP5 IN side, satisfied by *gousb.InEndpoint
type inEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// outEndpoint is the EP5 OUT side, satisfied by *gousb.OutEndpoint
type outEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

// Device represents one bridge
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         inEndpoint
	epOut        outEndpoint
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
	// Timeout bounds each command round trip
	Timeout time.Duration

	cmdMu   sync.Mutex // one command in flight
	recvBuf []byte
}

// IDs is a vendor/product pair to match
type IDs struct {
	Vendor  gousb.ID
	Product gousb.ID
}

// DefaultIDs are the bridge firmware identifiers
var DefaultIDs = []IDs{
	{Vendor: VendorID, Product: ProductID},
	{Vendor: VendorID, Product: ProductIDPT3Bridge},
}

// FindAllDevices opens every connected bridge matching ids (DefaultIDs when
// empty)
func FindAllDevices(usbCtx *gousb.Context, ids ...IDs) ([]*Device, error) {
	if len(ids) == 0 {
		ids = DefaultIDs
	}
	usbDevices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, id := range ids {
			if desc.Vendor == id.Vendor && desc.Product == id.Product {
				return true
			}
		}
		return false
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := []*Device{}
	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(EP5InAddr & 0x0F)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(EP5OutAddr)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	device := newDevice(epIn, epOut)
	device.usbDevice = usbDev
	device.usbConfig = config
	device.usbInterface = iface
	device.Serial = serial
	device.Manufacturer = manufacturer
	device.Product = product
	device.Bus = usbDev.Desc.Bus
	device.Address = usbDev.Desc.Address

	// Drain any stale data from the receive endpoint
	device.drainReceiveBuffer()
	return device, nil
}

func newDevice(in inEndpoint, out outEndpoint) *Device {
	return &Device{
		epIn:    in,
		epOut:   out,
		Timeout: USBDefaultTimeout,
		recvBuf: make([]byte, 0, EP5OutBufferSize),
	}
}

// Close releases the USB resources
func (d *Device) Close() error {
	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// drainReceiveBuffer reads and discards data left from a previous session
func (d *Device) drainReceiveBuffer() {
	buf := make([]byte, 512)
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()
		if err != nil || n == 0 {
			break
		}
	}
	d.recvBuf = d.recvBuf[:0]
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s %s (Serial: %s, %d:%d)", d.Manufacturer, d.Product, d.Serial, d.Bus, d.Address)
}

// Send sends a command via EP5 and waits for the matching response
func (d *Device) Send(app, cmd uint8, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout == 0 {
		timeout = d.Timeout
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d byte payload", ErrTooLarge, len(payload))
	}
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()

	packet := encodeCommand(app, cmd, payload)
	writeCtx, writeCancel := context.WithTimeout(context.Background(), timeout)
	n, err := d.epOut.WriteContext(writeCtx, packet)
	writeCancel()
	if err != nil {
		if writeCtx.Err() != nil {
			return nil, fmt.Errorf("write %w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to write to EP5: %w", err)
	}
	if n != len(packet) {
		return nil, fmt.Errorf("short write: wrote %d of %d bytes", n, len(packet))
	}

	return d.recv(app, cmd, timeout)
}

// recv reads until a response to app/cmd is complete
func (d *Device) recv(app, cmd uint8, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 512)

	for {
		payload, rest, ok := parseResponse(d.recvBuf, app, cmd)
		d.recvBuf = append(d.recvBuf[:0], rest...)
		if ok {
			return payload, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: app=0x%02X cmd=0x%02X", ErrTimeout, app, cmd)
		}

		// Short reads allow periodic deadline checks
		readTimeout := readSlice
		if remaining < readTimeout {
			readTimeout = remaining
		}
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gousb.ErrorTimeout) {
				continue
			}
			return nil, fmt.Errorf("failed to read from EP5: %w", err)
		}
		d.recvBuf = append(d.recvBuf, buf[:n]...)
	}
}

// Ping sends a ping command and verifies the echo
func (d *Device) Ping(data []byte) error {
	response, err := d.Send(AppSystem, SysCmdPing, data, 0)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if len(response) != len(data) {
		return fmt.Errorf("ping response length mismatch: sent %d bytes, got %d", len(data), len(response))
	}
	for i := range data {
		if response[i] != data[i] {
			return fmt.Errorf("ping response data mismatch at byte %d: sent 0x%02X, got 0x%02X", i, data[i], response[i])
		}
	}
	return nil
}

// GetBuildType returns the firmware build type string
func (d *Device) GetBuildType() (string, error) {
	response, err := d.Send(AppSystem, SysCmdBuildType, nil, 0)
	if err != nil {
		return "", fmt.Errorf("failed to get build type: %w", err)
	}
	for i, b := range response {
		if b == 0 {
			return string(response[:i]), nil
		}
	}
	return string(response), nil
}

// ResetBus asks the firmware to reset its I2C master
func (d *Device) ResetBus() error {
	if _, err := d.Send(AppSystem, SysCmdReset, nil, 0); err != nil {
		return fmt.Errorf("failed to reset I2C master: %w", err)
	}
	return nil
}

// ResetUSB performs a USB port reset of the bridge. The device must be
// reopened afterwards.
func (d *Device) ResetUSB() error {
	if d.usbDevice == nil {
		return ErrNoDevice
	}
	if err := d.usbDevice.Reset(); err != nil {
		return fmt.Errorf("failed to reset USB device: %w", err)
	}
	return nil
}

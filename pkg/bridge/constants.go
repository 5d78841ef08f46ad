package bridge

import "time"

// USB device identifiers of the bridge firmware
const (
	VendorID  = 0x1D50
	ProductID = 0x6089

	// Firmware builds that expose the same protocol
	ProductIDPT3Bridge = 0x608A
)

// USB endpoint configuration
const (
	EP5InAddr        = 0x85 // EP5 IN (device to host)
	EP5OutAddr       = 0x05 // EP5 OUT (host to device)
	EP5MaxPacketSize = 64
	EP5OutBufferSize = 516
	ResponseMarker   = 0x40 // '@' character marks start of response
	headerLen        = 4    // app, cmd, length (LE)
	responseHeader   = 5    // marker, app, cmd, length (LE)
)

// USB timeouts
const (
	USBDefaultTimeout = 1000 * time.Millisecond
	readSlice         = 100 * time.Millisecond
)

// Application IDs for the EP5 protocol
const (
	AppI2C    = 0x49 // I2C master
	AppSystem = 0xFF // system/administrative commands
)

// System commands (AppSystem)
const (
	SysCmdPing      = 0x82 // echo test
	SysCmdBuildType = 0x86 // firmware build info
	SysCmdReset     = 0x8F // reset the I2C master
)

// I2C commands (AppI2C)
const (
	I2CCmdXfer  = 0x01 // combined transaction, repeated start between segments
	I2CCmdSpeed = 0x02 // bus clock in kHz, 2 bytes LE
)

// I2C transaction encoding
const (
	SegRead      = 0x01 // segment flag: read
	StatusOK     = 0x00
	StatusNAK    = 0x01 // address or data not acknowledged
	StatusBusErr = 0x02 // arbitration lost or bus stuck
	maxSegments  = 255
)

// MaxPayload is the largest command payload the firmware accepts
const MaxPayload = EP5OutBufferSize - headerLen

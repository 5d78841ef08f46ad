package bridge

import "errors"

var (
	// ErrNoDevice is returned when no bridge matches a selector
	ErrNoDevice = errors.New("no I2C bridge found")

	// ErrTimeout is returned when the firmware does not answer in time
	ErrTimeout = errors.New("timeout waiting for response")

	// ErrNAK is returned when a slave does not acknowledge a segment
	ErrNAK = errors.New("I2C segment not acknowledged")

	// ErrBusFault is returned when the firmware reports a stuck bus
	ErrBusFault = errors.New("I2C bus fault")

	// ErrTooLarge is returned for transactions exceeding MaxPayload
	ErrTooLarge = errors.New("transaction too large")

	// ErrProtocol is returned for malformed firmware responses
	ErrProtocol = errors.New("malformed bridge response")
)

package scanner

import "errors"

// Scanner errors
var (
	// ErrScannerRunning indicates a scan is already in progress
	ErrScannerRunning = errors.New("scanner is already running")

	// ErrNoChannels indicates no channels were specified for scanning
	ErrNoChannels = errors.New("no channels specified for scanning")

	// ErrInvalidConfig indicates invalid scanner configuration
	ErrInvalidConfig = errors.New("invalid scanner configuration")
)

package scanner

import "time"

// Scan defaults
const (
	DefaultSamples        = 5                     // CNR reads per locked channel
	DefaultSampleInterval = 20 * time.Millisecond // pause between CNR reads
	MaxSamples            = 1000
)

// Lock tracker defaults
const (
	DefaultHoldMax       = 5 // status reads a lock is held after it drops
	DefaultLostThreshold = 2 // hold counter value at which the lock is reported lost
)

// CNR smoothing defaults
const (
	DefaultSmoothThreshold = 3.0 // dB - above this difference, use fast adaptation
	DefaultKFast           = 0.5
	DefaultKSlow           = 0.1
)

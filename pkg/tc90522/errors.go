package tc90522

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when lock is not reached within the poll budget
	ErrTimeout = errors.New("demodulator lock timeout")

	// ErrRetryOverflow is returned when the terrestrial demodulator gives up
	// on its own. It matches ErrTimeout.
	ErrRetryOverflow = fmt.Errorf("demodulator retry overflow: %w", ErrTimeout)

	// ErrTunerFailed wraps a failure of the tuner stage of a tune
	ErrTunerFailed = errors.New("tuner programming failed")
)

package scanner

import "math"

// Smoother implements adaptive exponential smoothing of CNR readings: large
// jumps are followed quickly, small fluctuations slowly
type Smoother struct {
	value     float64
	primed    bool
	threshold float64 // dB - above this difference, use fast adaptation
	kFast     float64 // adaptation coefficient for large changes (0-1)
	kSlow     float64 // adaptation coefficient for small changes (0-1)
}

// NewSmoother creates a smoother with default parameters
func NewSmoother() *Smoother {
	return NewSmootherWithParams(DefaultSmoothThreshold, DefaultKFast, DefaultKSlow)
}

// NewSmootherWithParams creates a smoother with custom parameters
func NewSmootherWithParams(threshold, kFast, kSlow float64) *Smoother {
	return &Smoother{threshold: threshold, kFast: kFast, kSlow: kSlow}
}

// Update applies smoothing to a new reading and returns the smoothed value
func (s *Smoother) Update(v float64) float64 {
	// First value is returned as-is
	if !s.primed {
		s.value = v
		s.primed = true
		return v
	}
	k := s.kSlow
	if math.Abs(v-s.value) > s.threshold {
		k = s.kFast
	}
	s.value += (v - s.value) * k
	return s.value
}

// Value returns the current smoothed value
func (s *Smoother) Value() float64 {
	return s.value
}

// Reset clears the smoother state
func (s *Smoother) Reset() {
	s.value = 0
	s.primed = false
}

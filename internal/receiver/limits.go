package receiver

import "sync"

// Calibration sentinels. Any real sample replaces both on first sight.
const (
	sentinelMin = 10000.0
	sentinelMax = -10000.0
)

// Limits holds the observed pulse-width extremes for one channel.
type Limits struct {
	Min float64
	Max float64
}

// LimitStore is the shared min/max table. Single writer (the calibrator),
// many readers (normalization). Readers may observe a mid-calibration
// sentinel range; Normalize tolerates that.
type LimitStore struct {
	mu     sync.RWMutex
	limits [NumControllers][NumChannels]Limits
}

// NewLimitStore starts every channel at the standard RC 1000-2000 us range
// so normalization is usable before the first calibration pass.
func NewLimitStore() *LimitStore {
	s := &LimitStore{}
	for c := 0; c < NumControllers; c++ {
		for ch := 0; ch < NumChannels; ch++ {
			s.limits[c][ch] = Limits{Min: 1000, Max: 2000}
		}
	}
	return s
}

func (s *LimitStore) Get(controller, channel int) Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits[controller][channel]
}

// BeginCalibration flips every channel to the sentinel range.
func (s *LimitStore) BeginCalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := 0; c < NumControllers; c++ {
		for ch := 0; ch < NumChannels; ch++ {
			s.limits[c][ch] = Limits{Min: sentinelMin, Max: sentinelMax}
		}
	}
}

// Observe widens a channel's limits to cover one raw sample.
func (s *LimitStore) Observe(controller, channel int, pw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim := &s.limits[controller][channel]
	if pw < lim.Min {
		lim.Min = pw
	}
	if pw > lim.Max {
		lim.Max = pw
	}
}

// Normalize converts a raw pulse width into a [0,100] control value using
// the channel's calibrated limits. A degenerate range (no calibration
// input, or a single-valued channel) yields the neutral 50 instead of a
// division by zero.
func Normalize(pw float64, lim Limits) float64 {
	if lim.Max <= lim.Min {
		return 50
	}
	pw = clamp(pw, lim.Min, lim.Max)
	return (pw - lim.Min) / (lim.Max - lim.Min) * 100.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

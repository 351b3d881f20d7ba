package receiver

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MonitorConfig struct {
	// Poll is the input sampling period.
	Poll time.Duration
	// StallTimeout declares a channel stale when its raw signal has not
	// changed for this long.
	StallTimeout time.Duration
	// Maps name the liveness-critical channels per controller.
	Maps [NumControllers]ChannelMap
}

// Monitor samples the pulse-width source on a fixed period, keeps the
// normalized control values for every channel, and tracks per-channel
// freshness for stall detection. It is the single writer of the control
// values; evaluator, mixer and actuator dispatch read snapshots.
type Monitor struct {
	cfg    MonitorConfig
	src    Source
	limits *LimitStore

	mu        sync.RWMutex
	controls  [NumControllers][NumChannels]float64
	lastRaw   [NumControllers][NumChannels]float64
	lastFresh [NumControllers][NumChannels]time.Time
	sampled   bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewMonitor(cfg MonitorConfig, src Source, limits *LimitStore) *Monitor {
	if cfg.Poll <= 0 {
		cfg.Poll = 20 * time.Millisecond
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = 500 * time.Millisecond
	}
	for c := range cfg.Maps {
		if len(cfg.Maps[c].Liveness) == 0 {
			cfg.Maps[c] = DefaultChannelMap()
		}
	}
	return &Monitor{cfg: cfg, src: src, limits: limits, stopCh: make(chan struct{})}
}

func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("receiver: monitor is nil")
	}
	if m.src == nil || m.limits == nil {
		return fmt.Errorf("receiver: monitor needs a source and a limit store")
	}
	go m.run(ctx)
	return nil
}

func (m *Monitor) Close() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) run(ctx context.Context) {
	t := time.NewTicker(m.cfg.Poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-t.C:
			m.sample(time.Now())
		}
	}
}

func (m *Monitor) sample(now time.Time) {
	for c := 0; c < NumControllers; c++ {
		for ch := 0; ch < NumChannels; ch++ {
			pw := m.src.Pulsewidth(c, ch)
			v := Normalize(pw, m.limits.Get(c, ch))

			m.mu.Lock()
			if !m.sampled || pw != m.lastRaw[c][ch] {
				m.lastFresh[c][ch] = now
			}
			m.lastRaw[c][ch] = pw
			m.controls[c][ch] = v
			m.mu.Unlock()
		}
	}
	m.mu.Lock()
	m.sampled = true
	m.mu.Unlock()
}

// Control returns the latest normalized value for one channel.
func (m *Monitor) Control(controller, channel int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controls[controller][channel]
}

// Controls returns the latest normalized values for one controller.
func (m *Monitor) Controls(controller int) [NumChannels]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controls[controller]
}

// Stalled reports whether a controller has lost its live signal: true when
// any liveness-critical channel has gone StallTimeout without a change.
// Before the first sample everything counts as stalled.
func (m *Monitor) Stalled(controller int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.sampled {
		return true
	}
	now := time.Now()
	for _, ch := range m.cfg.Maps[controller].Liveness {
		if now.Sub(m.lastFresh[controller][ch]) > m.cfg.StallTimeout {
			return true
		}
	}
	return false
}

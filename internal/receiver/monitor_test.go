package receiver

import (
	"sync"
	"testing"
	"time"
)

// fakeSource serves settable pulse widths; safe for concurrent use.
type fakeSource struct {
	mu sync.Mutex
	pw [NumControllers][NumChannels]float64
}

func newFakeSource(v float64) *fakeSource {
	s := &fakeSource{}
	for c := 0; c < NumControllers; c++ {
		for ch := 0; ch < NumChannels; ch++ {
			s.pw[c][ch] = v
		}
	}
	return s
}

func (s *fakeSource) set(controller, channel int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pw[controller][channel] = v
}

func (s *fakeSource) Pulsewidth(controller, channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pw[controller][channel]
}

func testMaps() [NumControllers]ChannelMap {
	return [NumControllers]ChannelMap{DefaultChannelMap(), DefaultChannelMap()}
}

func TestMonitor_NormalizesSamples(t *testing.T) {
	src := newFakeSource(1500)
	src.set(ControllerDrive, 3, 2000)
	m := NewMonitor(MonitorConfig{StallTimeout: time.Second, Maps: testMaps()}, src, NewLimitStore())

	m.sample(time.Now())

	if got := m.Control(ControllerWeapon, 0); got != 50 {
		t.Errorf("centered channel: got %v want 50", got)
	}
	if got := m.Control(ControllerDrive, 3); got != 100 {
		t.Errorf("maxed channel: got %v want 100", got)
	}
}

func TestMonitor_StalledBeforeFirstSample(t *testing.T) {
	m := NewMonitor(MonitorConfig{Maps: testMaps()}, newFakeSource(1500), NewLimitStore())
	if !m.Stalled(ControllerDrive) || !m.Stalled(ControllerWeapon) {
		t.Fatal("expected both controllers stalled before any samples")
	}
}

func TestMonitor_FrozenSignalStalls(t *testing.T) {
	src := newFakeSource(1500)
	m := NewMonitor(MonitorConfig{StallTimeout: 50 * time.Millisecond, Maps: testMaps()}, src, NewLimitStore())

	// The first sample marks every channel fresh; a follow-up inside the
	// timeout keeps the controller alive.
	m.sample(time.Now())
	src.set(ControllerDrive, 0, 1501)
	m.sample(time.Now())
	if m.Stalled(ControllerDrive) {
		t.Fatal("changing signal reported stalled")
	}

	// Freeze the signal; freshness ages past the timeout.
	old := time.Now().Add(-100 * time.Millisecond)
	m.mu.Lock()
	for ch := 0; ch < NumChannels; ch++ {
		m.lastFresh[ControllerDrive][ch] = old
	}
	m.mu.Unlock()
	if !m.Stalled(ControllerDrive) {
		t.Fatal("frozen signal not reported stalled")
	}
}

func TestMonitor_SingleStaleLivenessChannelStalls(t *testing.T) {
	src := newFakeSource(1500)
	m := NewMonitor(MonitorConfig{StallTimeout: 50 * time.Millisecond, Maps: testMaps()}, src, NewLimitStore())

	// Channel 0 keeps moving, but the other stick channels last changed a
	// second ago. One stale liveness channel is enough to stall the group.
	m.sample(time.Now().Add(-time.Second))
	src.set(ControllerDrive, 0, 1501)
	m.sample(time.Now())
	if !m.Stalled(ControllerDrive) {
		t.Fatal("stale stick channels not reported stalled")
	}
}

func TestMonitor_SwitchChannelDoesNotTripStall(t *testing.T) {
	src := newFakeSource(1500)
	m := NewMonitor(MonitorConfig{StallTimeout: 50 * time.Millisecond, Maps: testMaps()}, src, NewLimitStore())

	m.sample(time.Now())
	// Keep the stick channels moving while the arm switch stays put.
	for i := 0; i < 3; i++ {
		for ch := 0; ch < 4; ch++ {
			src.set(ControllerDrive, ch, 1500+float64(i+ch))
			src.set(ControllerWeapon, ch, 1500+float64(i+ch))
		}
		m.sample(time.Now())
	}
	if m.Stalled(ControllerDrive) || m.Stalled(ControllerWeapon) {
		t.Fatal("stationary switch channel tripped stall detection")
	}
}

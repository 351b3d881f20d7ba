package orientation

import (
	"testing"

	"github.com/TeamTriforceUK/triforce-robot/internal/sensors/bno055"
)

type fakeSensor struct {
	healthy bool
	euler   bno055.Euler
	accel   bno055.Accel
	tempC   int
}

func (f *fakeSensor) Healthy() (bool, error)       { return f.healthy, nil }
func (f *fakeSensor) Euler() (bno055.Euler, error) { return f.euler, nil }
func (f *fakeSensor) Accel() (bno055.Accel, error) { return f.accel, nil }
func (f *fakeSensor) Temperature() (int, error)    { return f.tempC, nil }

func newTestService(dev sensor) *Service {
	s := New(Config{Enable: true})
	s.dev = dev
	return s
}

func TestSampleAttitude_InvertedDetection(t *testing.T) {
	cases := []struct {
		roll string
		deg  float64
		want Mode
	}{
		{"level", 0, Upright},
		{"inverted resting", -60, Inverted},
		{"edge of band low", -89, Inverted},
		{"past vertical", -91, Upright},
		{"edge of band high", -31, Inverted},
		{"tilted but upright", -20, Upright},
		{"positive roll", 60, Upright},
	}
	for _, tc := range cases {
		dev := &fakeSensor{healthy: true, euler: bno055.Euler{Roll: tc.deg}}
		s := newTestService(dev)
		s.sampleAttitude()
		snap := s.Snapshot()
		if !snap.Valid || snap.Detected != tc.want {
			t.Errorf("%s (roll %v): detected=%s valid=%v want %s", tc.roll, tc.deg, snap.Detected, snap.Valid, tc.want)
		}
	}
}

func TestSampleAttitude_UnhealthySensorHoldsPose(t *testing.T) {
	dev := &fakeSensor{healthy: true, euler: bno055.Euler{Heading: 120, Roll: -60, Pitch: 3}}
	s := newTestService(dev)
	s.sampleAttitude()

	// Sensor degrades; the pose from the last good sample must stick.
	dev.healthy = false
	dev.euler = bno055.Euler{Heading: 0, Roll: 0, Pitch: 0}
	s.sampleAttitude()

	snap := s.Snapshot()
	if snap.Heading != 120 || snap.Roll != -60 || snap.Detected != Inverted {
		t.Fatalf("snapshot=%+v, unhealthy sensor must not change the pose", snap)
	}
	if snap.LastError == "" {
		t.Fatal("expected an error note while unhealthy")
	}
}

func TestOverride_WinsOverDetection(t *testing.T) {
	dev := &fakeSensor{healthy: true, euler: bno055.Euler{Roll: -60}}
	s := newTestService(dev)
	s.sampleAttitude()

	if !s.Snapshot().Inverted() {
		t.Fatal("detected inverted pose not reported")
	}
	s.SetOverride(Upright)
	if s.Snapshot().Inverted() {
		t.Fatal("override upright not honored")
	}
	s.ClearOverride()
	if !s.Snapshot().Inverted() {
		t.Fatal("cleared override did not return to detection")
	}
}

func TestSampleTelemetry(t *testing.T) {
	dev := &fakeSensor{healthy: true, accel: bno055.Accel{X: 0.1, Y: -0.2, Z: 9.8}, tempC: 31}
	s := newTestService(dev)
	s.sampleTelemetry()

	snap := s.Snapshot()
	if snap.AccelZ != 9.8 || snap.TempC != 31 {
		t.Fatalf("snapshot=%+v want accel z 9.8, temp 31", snap)
	}
}

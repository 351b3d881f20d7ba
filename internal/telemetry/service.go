package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/orientation"
)

// Sample is one telemetry frame's worth of state.
type Sample struct {
	Yaw   float64
	Pitch float64
	Roll  float64

	AccelX float64
	AccelY float64
	AccelZ float64

	// RPM sensing is not fitted; the fields stream as zero so the
	// receiver's record set stays stable.
	RingRPM float64
	Con1RPM float64
	Con2RPM float64

	AmbientTemp int
	ArmStatus   arming.State
}

// Encode renders a sample as "NAME value\r" records. The ESP delimits
// records on the carriage return. Floats are fixed to two decimals.
func Encode(s Sample) []byte {
	var b bytes.Buffer
	f := func(name string, v float64) { fmt.Fprintf(&b, "%s %.2f\r", name, v) }

	f("ring_rpm", s.RingRPM)
	f("con_1_rpm", s.Con1RPM)
	f("con_2_rpm", s.Con2RPM)
	f("accel_x", s.AccelX)
	f("accel_y", s.AccelY)
	f("accel_z", s.AccelZ)
	f("pitch", s.Pitch)
	f("roll", s.Roll)
	f("yaw", s.Yaw)
	fmt.Fprintf(&b, "ambient_temp %d\r", s.AmbientTemp)
	fmt.Fprintf(&b, "arm_status %d\r", int(s.ArmStatus))
	return b.Bytes()
}

// Orientation supplies attitude, acceleration and temperature.
type Orientation interface {
	Snapshot() orientation.Snapshot
}

// Arm supplies the current arming state.
type Arm interface {
	Current() arming.State
}

type Config struct {
	Enable bool
	Period time.Duration
}

// Service periodically collects a Sample and pushes the encoded frame to
// its sink. Send errors are logged and the loop keeps going; telemetry
// must never take the robot down.
type Service struct {
	cfg    Config
	orient Orientation
	arm    Arm
	sink   Sink

	mu   sync.RWMutex
	last Sample

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, orient Orientation, arm Arm, sink Sink) *Service {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	return &Service{
		cfg:    cfg,
		orient: orient,
		arm:    arm,
		sink:   sink,
		stopCh: make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("telemetry: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if s.sink == nil {
		return fmt.Errorf("telemetry: no sink configured")
	}
	go s.run(ctx)
	return nil
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.sink != nil {
			_ = s.sink.Close()
		}
	})
}

// Snapshot returns the last collected sample.
func (s *Service) Snapshot() Sample {
	if s == nil {
		return Sample{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Service) run(ctx context.Context) {
	tick := time.NewTicker(s.cfg.Period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.stopCh:
			return
		case <-tick.C:
			sample := s.collect()
			s.mu.Lock()
			s.last = sample
			s.mu.Unlock()
			if err := s.sink.Send(Encode(sample)); err != nil {
				log.Printf("telemetry: send: %v", err)
			}
		}
	}
}

func (s *Service) collect() Sample {
	var sample Sample
	if s.arm != nil {
		sample.ArmStatus = s.arm.Current()
	}
	if s.orient != nil {
		snap := s.orient.Snapshot()
		sample.Yaw = snap.Heading
		sample.Pitch = snap.Pitch
		sample.Roll = snap.Roll
		sample.AccelX = snap.AccelX
		sample.AccelY = snap.AccelY
		sample.AccelZ = snap.AccelZ
		sample.AmbientTemp = snap.TempC
	}
	return sample
}

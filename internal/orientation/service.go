// Package orientation tracks the robot's attitude from the BNO055 and
// derives the inverted-driving flag consumed by status reporting and
// telemetry.
package orientation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/i2c"
	"github.com/TeamTriforceUK/triforce-robot/internal/sensors/bno055"
)

// Mode says which way up the robot believes it is.
type Mode int

const (
	Upright Mode = iota
	Inverted
)

func (m Mode) String() string {
	if m == Inverted {
		return "inverted"
	}
	return "upright"
}

type Config struct {
	Enable bool
	I2CBus int
	Addr   uint16
	// Period is the attitude sampling rate; temperature and accel are
	// read on a slower tick.
	Period time.Duration
}

type Snapshot struct {
	Valid bool

	Heading float64
	Pitch   float64
	Roll    float64

	// Detected is derived from roll; Override is what the operator has
	// forced, when set.
	Detected    Mode
	Override    Mode
	OverrideSet bool

	AccelX, AccelY, AccelZ float64
	TempC                  int

	LastError string
	UpdatedAt time.Time
}

// Inverted is the mode in effect: the override when set, otherwise the
// detected one.
func (s Snapshot) Inverted() bool {
	if s.OverrideSet {
		return s.Override == Inverted
	}
	return s.Detected == Inverted
}

// sensor is the slice of the BNO055 driver the service uses.
type sensor interface {
	Healthy() (bool, error)
	Euler() (bno055.Euler, error)
	Accel() (bno055.Accel, error)
	Temperature() (int, error)
}

type Service struct {
	cfg Config

	mu   sync.RWMutex
	snap Snapshot

	bus *i2c.Bus
	dev sensor

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config) *Service {
	if cfg.I2CBus == 0 {
		cfg.I2CBus = 1
	}
	if cfg.Addr == 0 {
		cfg.Addr = bno055.DefaultAddress()
	}
	if cfg.Period <= 0 {
		cfg.Period = 50 * time.Millisecond
	}
	return &Service{cfg: cfg, stopCh: make(chan struct{})}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetOverride forces the orientation mode regardless of what the sensor
// detects. ClearOverride returns to detection.
func (s *Service) SetOverride(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Override = m
	s.snap.OverrideSet = true
}

func (s *Service) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.OverrideSet = false
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.bus != nil {
			_ = s.bus.Close()
			s.bus = nil
		}
	})
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("orientation: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}

	busPath := fmt.Sprintf("/dev/i2c-%d", s.cfg.I2CBus)
	bus, err := i2c.Open(busPath)
	if err != nil {
		s.setErr(fmt.Sprintf("open %s: %v", busPath, err))
		return err
	}
	s.bus = bus

	dev, err := bno055.New(bus.Dev(s.cfg.Addr))
	if err != nil {
		s.setErr(fmt.Sprintf("sensor init: %v", err))
		_ = bus.Close()
		s.bus = nil
		return err
	}
	s.dev = dev

	go s.run(ctx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	attTick := time.NewTicker(s.cfg.Period)
	teleTick := time.NewTicker(time.Second)
	defer attTick.Stop()
	defer teleTick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.stopCh:
			return
		case <-attTick.C:
			s.sampleAttitude()
		case <-teleTick.C:
			s.sampleTelemetry()
		}
	}
}

func (s *Service) sampleAttitude() {
	healthy, err := s.dev.Healthy()
	if err != nil {
		s.setErr(err.Error())
		return
	}
	if !healthy {
		// Keep the previous pose so an unhealthy sensor cannot flip the
		// controls at random.
		s.setErr("sensor unhealthy, holding last orientation")
		return
	}

	e, err := s.dev.Euler()
	if err != nil {
		s.setErr(err.Error())
		return
	}

	s.mu.Lock()
	s.snap.Valid = true
	s.snap.Heading = e.Heading
	s.snap.Pitch = e.Pitch
	s.snap.Roll = e.Roll
	// The sensor reports around -60 degrees of roll when the robot is
	// upside down on its wheels.
	if e.Roll < -30 && e.Roll > -90 {
		s.snap.Detected = Inverted
	} else {
		s.snap.Detected = Upright
	}
	s.snap.LastError = ""
	s.snap.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Service) sampleTelemetry() {
	a, err := s.dev.Accel()
	if err != nil {
		s.setErr(err.Error())
		return
	}
	t, err := s.dev.Temperature()
	if err != nil {
		s.setErr(err.Error())
		return
	}
	s.mu.Lock()
	s.snap.AccelX, s.snap.AccelY, s.snap.AccelZ = a.X, a.Y, a.Z
	s.snap.TempC = t
	s.mu.Unlock()
}

func (s *Service) setErr(msg string) {
	s.mu.Lock()
	changed := s.snap.LastError != msg
	s.snap.LastError = msg
	s.snap.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
	if changed {
		log.Printf("orientation: %s", msg)
	}
}

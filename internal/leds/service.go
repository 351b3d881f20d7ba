package leds

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
)

// Arm supplies the state the bank renders.
type Arm interface {
	Current() arming.State
}

type Config struct {
	Enable bool
	// Period is the render tick; it is also the ripple step rate.
	Period time.Duration
}

// Service renders the arming state onto its driver every tick.
type Service struct {
	cfg Config
	arm Arm
	drv Driver

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, arm Arm, drv Driver) *Service {
	if cfg.Period <= 0 {
		cfg.Period = 100 * time.Millisecond
	}
	if drv == nil {
		drv = Noop{}
	}
	return &Service{cfg: cfg, arm: arm, drv: drv, stopCh: make(chan struct{})}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("leds: service is nil")
	}
	if !s.cfg.Enable {
		return nil
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
		_ = s.drv.Set([NumLEDs]bool{})
		_ = s.drv.Close()
	})
}

func (s *Service) run(ctx context.Context) {
	tick := time.NewTicker(s.cfg.Period)
	defer tick.Stop()

	var (
		n    int
		prev = [NumLEDs]bool{}
	)
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.stopCh:
			return
		case <-tick.C:
			p := Pattern(s.arm.Current(), n)
			n++
			if p == prev {
				continue
			}
			prev = p
			if err := s.drv.Set(p); err != nil {
				log.Printf("leds: %v", err)
			}
		}
	}
}

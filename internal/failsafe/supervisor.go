// Package failsafe watches receiver liveness and de-escalates the arming
// level when a transmitter is lost. It can only ever lower the level;
// re-arming is the evaluator's and the operator's business.
package failsafe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/receiver"
)

// Detector reports controller-group liveness. Satisfied by
// *receiver.Monitor.
type Detector interface {
	Stalled(controller int) bool
}

// Arm is the slice of the arming machine the supervisor uses.
type Arm interface {
	Current() arming.State
	Apply(ctx context.Context, req arming.Request) (arming.State, error)
}

type Config struct {
	Period time.Duration
}

type Supervisor struct {
	cfg Config
	det Detector
	arm Arm

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, det Detector, arm Arm) *Supervisor {
	if cfg.Period <= 0 {
		cfg.Period = 100 * time.Millisecond
	}
	return &Supervisor{cfg: cfg, det: det, arm: arm, stopCh: make(chan struct{})}
}

func (s *Supervisor) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("failsafe: supervisor is nil")
	}
	if s.det == nil || s.arm == nil {
		return fmt.Errorf("failsafe: supervisor needs a detector and the arming machine")
	}
	go s.run(ctx)
	return nil
}

func (s *Supervisor) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Supervisor) run(ctx context.Context) {
	t := time.NewTicker(s.cfg.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
			s.evaluate(ctx)
		}
	}
}

// evaluate emits at most one demote/disarm request per cycle. A stall is a
// first-class input here, never an error: the resolution is always a
// de-escalation.
func (s *Supervisor) evaluate(ctx context.Context) {
	driveStalled := s.det.Stalled(receiver.ControllerDrive)
	weaponStalled := s.det.Stalled(receiver.ControllerWeapon)

	var req arming.Request
	switch s.arm.Current() {
	case arming.FullyArmed:
		switch {
		case driveStalled && weaponStalled:
			req = arming.Request{Kind: arming.Disarm, Source: arming.SourceFailsafe}
		case driveStalled:
			req = arming.Request{Kind: arming.Demote, Axis: arming.AxisDrive, Source: arming.SourceFailsafe}
		case weaponStalled:
			req = arming.Request{Kind: arming.Demote, Axis: arming.AxisWeapon, Source: arming.SourceFailsafe}
		default:
			return
		}
	case arming.DriveOnly:
		if !driveStalled {
			return
		}
		req = arming.Request{Kind: arming.Disarm, Source: arming.SourceFailsafe}
	case arming.WeaponOnly:
		if !weaponStalled {
			return
		}
		req = arming.Request{Kind: arming.Disarm, Source: arming.SourceFailsafe}
	default: // Disarmed: already minimal.
		return
	}

	if _, err := s.arm.Apply(ctx, req); err != nil &&
		!errors.Is(err, arming.ErrAlreadyDisarmed) && !errors.Is(err, context.Canceled) {
		log.Printf("failsafe: apply: %v", err)
	}
}

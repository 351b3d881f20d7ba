// Package intent tracks the transmitters' arm switches and the arm
// gesture, turning them into promote/demote requests. Unlike the operator
// command ladder this path is axis-aware: each switch governs its own
// axis, and arming additionally demands centered sticks so the robot
// cannot wake up moving.
package intent

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

// Controls is the slice of the receiver monitor the evaluator reads.
type Controls interface {
	Controls(controller int) [receiver.NumChannels]float64
	Stalled(controller int) bool
}

type Arm interface {
	Current() arming.State
	Apply(ctx context.Context, req arming.Request) (arming.State, error)
}

type Config struct {
	// Period may be coarser than the control loop; switch tracking does
	// not need control-rate latency.
	Period time.Duration
	// SwitchMidpoint is the on/off threshold for the arm-switch channels.
	SwitchMidpoint float64
	Weapon         receiver.ChannelMap
	Drive          receiver.ChannelMap
}

type Evaluator struct {
	cfg      Config
	controls Controls
	arm      Arm

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, controls Controls, arm Arm) *Evaluator {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.SwitchMidpoint <= 0 {
		cfg.SwitchMidpoint = 50
	}
	return &Evaluator{cfg: cfg, controls: controls, arm: arm, stopCh: make(chan struct{})}
}

func (e *Evaluator) Start(ctx context.Context) error {
	if e == nil {
		return fmt.Errorf("intent: evaluator is nil")
	}
	if e.controls == nil || e.arm == nil {
		return fmt.Errorf("intent: evaluator needs controls and the arming machine")
	}
	go e.run(ctx)
	return nil
}

func (e *Evaluator) Close() {
	if e == nil {
		return
	}
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Evaluator) run(ctx context.Context) {
	t := time.NewTicker(e.cfg.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-t.C:
			e.evaluate(ctx)
		}
	}
}

// armGesture is the stick discipline required before an axis may arm:
// switch on, link alive, throttle at zero and the other three axes
// centered.
func armGesture(c [receiver.NumChannels]float64, m receiver.ChannelMap, switchOn, stalled bool) bool {
	return switchOn && !stalled &&
		between(c[m.Throttle], 0, 2) &&
		between(c[m.Elevation], 45, 55) &&
		between(c[m.Rudder], 45, 55) &&
		between(c[m.Aileron], 45, 55)
}

func (e *Evaluator) evaluate(ctx context.Context) {
	wc := e.controls.Controls(receiver.ControllerWeapon)
	dc := e.controls.Controls(receiver.ControllerDrive)

	weaponSwitch := wc[e.cfg.Weapon.ArmSwitch] > e.cfg.SwitchMidpoint
	driveSwitch := dc[e.cfg.Drive.ArmSwitch] > e.cfg.SwitchMidpoint

	weaponArm := armGesture(wc, e.cfg.Weapon, weaponSwitch, e.controls.Stalled(receiver.ControllerWeapon))
	driveArm := armGesture(dc, e.cfg.Drive, driveSwitch, e.controls.Stalled(receiver.ControllerDrive))

	var reqs []arming.Request
	switch e.arm.Current() {
	case arming.FullyArmed:
		// Only the switches matter on the way down; stick positions are
		// irrelevant for de-escalation.
		switch {
		case !driveSwitch && !weaponSwitch:
			reqs = append(reqs, arming.Request{Kind: arming.Disarm, Source: arming.SourceSwitch})
		case !weaponSwitch:
			reqs = append(reqs, arming.Request{Kind: arming.Demote, Axis: arming.AxisWeapon, Source: arming.SourceSwitch})
		case !driveSwitch:
			reqs = append(reqs, arming.Request{Kind: arming.Demote, Axis: arming.AxisDrive, Source: arming.SourceSwitch})
		}
	case arming.DriveOnly:
		if !driveSwitch {
			reqs = append(reqs, arming.Request{Kind: arming.Demote, Axis: arming.AxisDrive, Source: arming.SourceSwitch})
		} else if weaponArm {
			reqs = append(reqs, arming.Request{Kind: arming.Promote, Axis: arming.AxisWeapon, Source: arming.SourceSwitch})
		}
	case arming.WeaponOnly:
		if !weaponSwitch {
			reqs = append(reqs, arming.Request{Kind: arming.Demote, Axis: arming.AxisWeapon, Source: arming.SourceSwitch})
		} else if driveArm {
			reqs = append(reqs, arming.Request{Kind: arming.Promote, Axis: arming.AxisDrive, Source: arming.SourceSwitch})
		}
	default: // Disarmed
		if driveArm {
			reqs = append(reqs, arming.Request{Kind: arming.Promote, Axis: arming.AxisDrive, Source: arming.SourceSwitch})
		}
		if weaponArm {
			reqs = append(reqs, arming.Request{Kind: arming.Promote, Axis: arming.AxisWeapon, Source: arming.SourceSwitch})
		}
	}

	for _, req := range reqs {
		if _, err := e.arm.Apply(ctx, req); err != nil &&
			!errors.Is(err, arming.ErrAlreadyArmed) && !errors.Is(err, context.Canceled) {
			log.Printf("intent: apply: %v", err)
		}
	}
}

func between(v, lo, hi float64) bool { return v >= lo && v <= hi }

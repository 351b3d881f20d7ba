package esc

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/mixer"
	"github.com/TeamTriforceUK/triforce-robot/internal/receiver"
)

// Controls is the slice of the receiver monitor the dispatcher reads.
type Controls interface {
	Controls(controller int) [receiver.NumChannels]float64
}

// ArmingState exposes the current arming level.
type ArmingState interface {
	Current() arming.State
}

type Config struct {
	// Period is the output update rate.
	Period time.Duration
	Drive  receiver.ChannelMap
	Weapon receiver.ChannelMap
}

// Outputs is the last set of computed throttle commands. Telemetry and the
// status query read it; the mixer never reads it back.
type Outputs struct {
	Drive  mixer.Drive
	Weapon mixer.Weapon
}

// Dispatcher runs the mixer every cycle and applies the result to the
// three drive and three weapon ESCs, gated strictly by arming state:
// an armed group gets throttle, Disarmed gets Failsafe on all six, and a
// group that is not armed is simply not driven.
type Dispatcher struct {
	cfg      Config
	controls Controls
	state    ArmingState
	drive    [3]Driver
	weapon   [3]Driver

	mu  sync.RWMutex
	out Outputs

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewDispatcher(cfg Config, controls Controls, state ArmingState, drive, weapon [3]Driver) *Dispatcher {
	if cfg.Period <= 0 {
		cfg.Period = 20 * time.Millisecond
	}
	return &Dispatcher{
		cfg:      cfg,
		controls: controls,
		state:    state,
		drive:    drive,
		weapon:   weapon,
		stopCh:   make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	if d == nil {
		return fmt.Errorf("esc: dispatcher is nil")
	}
	if d.controls == nil || d.state == nil {
		return fmt.Errorf("esc: dispatcher needs controls and the arming state")
	}
	for i := 0; i < 3; i++ {
		if d.drive[i] == nil || d.weapon[i] == nil {
			return fmt.Errorf("esc: dispatcher needs six drivers")
		}
	}
	go d.run(ctx)
	return nil
}

func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() { close(d.stopCh) })
	for _, drv := range d.drive {
		if drv != nil {
			_ = drv.Close()
		}
	}
	for _, drv := range d.weapon {
		if drv != nil {
			_ = drv.Close()
		}
	}
}

// Snapshot returns the last computed outputs.
func (d *Dispatcher) Snapshot() Outputs {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.out
}

func (d *Dispatcher) run(ctx context.Context) {
	t := time.NewTicker(d.cfg.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-t.C:
			d.step()
		}
	}
}

func (d *Dispatcher) step() {
	dc := d.controls.Controls(receiver.ControllerDrive)
	wc := d.controls.Controls(receiver.ControllerWeapon)

	out := Outputs{
		Drive:  mixer.Mix(dc[d.cfg.Drive.Aileron], dc[d.cfg.Drive.Elevation], dc[d.cfg.Drive.Rudder]),
		Weapon: mixer.WeaponThrottle(wc[d.cfg.Weapon.Throttle]),
	}

	d.mu.Lock()
	d.out = out
	d.mu.Unlock()

	switch d.state.Current() {
	case arming.FullyArmed:
		d.setWeapon(out.Weapon)
		d.setDrive(out.Drive)
	case arming.DriveOnly:
		d.setDrive(out.Drive)
	case arming.WeaponOnly:
		d.setWeapon(out.Weapon)
	default: // Disarmed
		for _, drv := range d.drive {
			d.try(drv.Failsafe())
		}
		for _, drv := range d.weapon {
			d.try(drv.Failsafe())
		}
	}
}

func (d *Dispatcher) setDrive(out mixer.Drive) {
	d.try(d.drive[0].SetThrottle(out.Wheel1))
	d.try(d.drive[1].SetThrottle(out.Wheel2))
	d.try(d.drive[2].SetThrottle(out.Wheel3))
}

func (d *Dispatcher) setWeapon(out mixer.Weapon) {
	d.try(d.weapon[0].SetThrottle(out.Motor1))
	d.try(d.weapon[1].SetThrottle(out.Motor2))
	d.try(d.weapon[2].SetThrottle(out.Motor3))
}

func (d *Dispatcher) try(err error) {
	if err != nil {
		log.Printf("esc: output: %v", err)
	}
}

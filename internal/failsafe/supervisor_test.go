package failsafe

import (
	"context"
	"testing"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/receiver"
)

type fakeDetector struct {
	drive  bool
	weapon bool
}

func (d fakeDetector) Stalled(controller int) bool {
	if controller == receiver.ControllerDrive {
		return d.drive
	}
	return d.weapon
}

func startedMachine(t *testing.T, initial arming.State) (*arming.Machine, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := arming.NewMachine()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("machine start: %v", err)
	}
	t.Cleanup(m.Close)
	if initial != arming.Disarmed {
		if _, err := m.Apply(ctx, arming.Request{Kind: arming.SetExact, Target: initial, Source: arming.SourceCommand}); err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}
	return m, ctx
}

func TestEvaluate_DecisionTable(t *testing.T) {
	cases := []struct {
		name    string
		initial arming.State
		drive   bool
		weapon  bool
		want    arming.State
	}{
		{"full both stalled disarms", arming.FullyArmed, true, true, arming.Disarmed},
		{"full drive stalled keeps weapon", arming.FullyArmed, true, false, arming.WeaponOnly},
		{"full weapon stalled keeps drive", arming.FullyArmed, false, true, arming.DriveOnly},
		{"full healthy holds", arming.FullyArmed, false, false, arming.FullyArmed},
		{"drive only stalled disarms", arming.DriveOnly, true, false, arming.Disarmed},
		{"drive only weapon stall ignored", arming.DriveOnly, false, true, arming.DriveOnly},
		{"weapon only stalled disarms", arming.WeaponOnly, true, true, arming.Disarmed},
		{"weapon only healthy holds", arming.WeaponOnly, false, false, arming.WeaponOnly},
		{"disarmed stays disarmed", arming.Disarmed, true, true, arming.Disarmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, ctx := startedMachine(t, tc.initial)
			s := New(Config{}, fakeDetector{drive: tc.drive, weapon: tc.weapon}, m)
			s.evaluate(ctx)
			if got := m.Current(); got != tc.want {
				t.Fatalf("state=%s want %s", got, tc.want)
			}
		})
	}
}

func TestEvaluate_NeverPromotes(t *testing.T) {
	// Healthy signals from every state must leave the level untouched.
	for _, initial := range []arming.State{arming.Disarmed, arming.DriveOnly, arming.WeaponOnly} {
		m, ctx := startedMachine(t, initial)
		s := New(Config{}, fakeDetector{}, m)
		for i := 0; i < 5; i++ {
			s.evaluate(ctx)
		}
		if got := m.Current(); got != initial {
			t.Fatalf("from %s: state=%s, supervisor must never escalate", initial, got)
		}
	}
}

func TestRun_PeriodicDowngrade(t *testing.T) {
	m, ctx := startedMachine(t, arming.FullyArmed)
	s := New(Config{Period: 5 * time.Millisecond}, fakeDetector{drive: true, weapon: true}, m)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	deadline := time.After(time.Second)
	for m.Current() != arming.Disarmed {
		select {
		case <-deadline:
			t.Fatalf("state=%s, never disarmed", m.Current())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/orientation"
)

func startedMachine(t *testing.T) *arming.Machine {
	t.Helper()
	m := arming.NewMachine()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

type fakeOrient struct {
	snap orientation.Snapshot
}

func (f *fakeOrient) Snapshot() orientation.Snapshot { return f.snap }

func TestExecute_PartialArmLadder(t *testing.T) {
	m := startedMachine(t)
	d := NewDispatcher(m, nil)
	ctx := context.Background()

	want := []arming.State{arming.DriveOnly, arming.WeaponOnly, arming.FullyArmed}
	for i, w := range want {
		out, err := d.Execute(ctx, Command{ID: PartialArm, Name: "partial-arm"})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if m.Current() != w {
			t.Fatalf("step %d: state=%s want %s (output %q)", i, m.Current(), w, out)
		}
	}

	// Fourth step is a benign no-op.
	_, err := d.Execute(ctx, Command{ID: PartialArm, Name: "partial-arm"})
	if !errors.Is(err, arming.ErrAlreadyArmed) {
		t.Fatalf("fourth partial-arm err = %v, want ErrAlreadyArmed", err)
	}
	if m.Current() != arming.FullyArmed {
		t.Fatalf("state changed on no-op: %s", m.Current())
	}
}

func TestExecute_FullCommands(t *testing.T) {
	m := startedMachine(t)
	d := NewDispatcher(m, nil)
	ctx := context.Background()

	if _, err := d.Execute(ctx, Command{ID: FullyArm, Name: "fully-arm"}); err != nil {
		t.Fatalf("fully-arm: %v", err)
	}
	if m.Current() != arming.FullyArmed {
		t.Fatalf("state=%s want FULLY_ARMED", m.Current())
	}

	if _, err := d.Execute(ctx, Command{ID: PartialDisarm, Name: "partial-disarm"}); err != nil {
		t.Fatalf("partial-disarm: %v", err)
	}
	if m.Current() != arming.WeaponOnly {
		t.Fatalf("state=%s want WEAPON_ONLY", m.Current())
	}

	if _, err := d.Execute(ctx, Command{ID: FullyDisarm, Name: "fully-disarm"}); err != nil {
		t.Fatalf("fully-disarm: %v", err)
	}
	if m.Current() != arming.Disarmed {
		t.Fatalf("state=%s want DISARMED", m.Current())
	}

	if _, err := d.Execute(ctx, Command{ID: FullyDisarm, Name: "fully-disarm"}); !errors.Is(err, arming.ErrAlreadyDisarmed) {
		t.Fatalf("repeat fully-disarm err = %v, want ErrAlreadyDisarmed", err)
	}
}

func TestExecute_Status(t *testing.T) {
	m := startedMachine(t)
	orient := &fakeOrient{snap: orientation.Snapshot{
		Valid:    true,
		Heading:  123.4,
		Pitch:    1.2,
		Roll:     -60,
		Detected: orientation.Inverted,
	}}
	d := NewDispatcher(m, orient)

	out, err := d.Execute(context.Background(), Command{ID: Status, Name: "status"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"DISARMED", "detected inverted", "override none", "heading 123.4", "roll -60.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
	if m.Current() != arming.Disarmed {
		t.Fatalf("status must not change state, got %s", m.Current())
	}
}

func TestExecute_StatusWithoutOrientation(t *testing.T) {
	d := NewDispatcher(startedMachine(t), nil)
	out, err := d.Execute(context.Background(), Command{ID: Status, Name: "status"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "orientation: unavailable") {
		t.Fatalf("output %q missing orientation note", out)
	}
}

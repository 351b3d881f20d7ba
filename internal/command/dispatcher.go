package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/orientation"
)

// Arm is the slice of the arming machine the dispatcher drives.
type Arm interface {
	Current() arming.State
	Apply(ctx context.Context, req arming.Request) (arming.State, error)
}

// Orientation supplies the attitude snapshot shown by the status command.
type Orientation interface {
	Snapshot() orientation.Snapshot
}

// Dispatcher executes parsed commands against the arming machine. Status
// is the only read-only command; everything else is an arming request
// carrying command priority.
type Dispatcher struct {
	arm    Arm
	orient Orientation
}

func NewDispatcher(arm Arm, orient Orientation) *Dispatcher {
	return &Dispatcher{arm: arm, orient: orient}
}

// Execute runs one command and returns the text to show the operator.
// Benign no-op results (already armed, already disarmed) come back as the
// error with the unchanged state in the text.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (string, error) {
	var req arming.Request
	switch cmd.ID {
	case FullyDisarm:
		req = arming.Request{Kind: arming.SetExact, Target: arming.Disarmed, Source: arming.SourceCommand}
	case PartialDisarm:
		req = arming.Request{Kind: arming.StepDisarm, Source: arming.SourceCommand}
	case PartialArm:
		req = arming.Request{Kind: arming.StepArm, Source: arming.SourceCommand}
	case FullyArm:
		req = arming.Request{Kind: arming.SetExact, Target: arming.FullyArmed, Source: arming.SourceCommand}
	case Status:
		return d.status(), nil
	default:
		return "", fmt.Errorf("command: unknown id %d", cmd.ID)
	}

	st, err := d.arm.Apply(ctx, req)
	return fmt.Sprintf("state: %s", st), err
}

func (d *Dispatcher) status() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s\n", d.arm.Current())

	if d.orient == nil {
		b.WriteString("orientation: unavailable")
		return b.String()
	}
	snap := d.orient.Snapshot()
	if !snap.Valid {
		b.WriteString("orientation: no fix yet")
		return b.String()
	}

	override := "none"
	if snap.OverrideSet {
		override = snap.Override.String()
	}
	fmt.Fprintf(&b, "orientation: detected %s, override %s\n", snap.Detected, override)
	fmt.Fprintf(&b, "attitude: heading %.1f, pitch %.1f, roll %.1f", snap.Heading, snap.Pitch, snap.Roll)
	return b.String()
}

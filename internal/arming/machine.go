package arming

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Benign no-op results. They are reported to the requester and never
// escalate; the machine stays in its current state.
var (
	ErrAlreadyArmed    = errors.New("arming: already armed")
	ErrAlreadyDisarmed = errors.New("arming: already disarmed")
)

// Kind is the operation a Request asks for.
type Kind int

const (
	// Promote raises one axis (Disarmed -> axis-only -> FullyArmed).
	Promote Kind = iota
	// Demote lowers one axis (FullyArmed -> other-axis-only -> Disarmed).
	Demote
	// Disarm drops straight to Disarmed from anywhere.
	Disarm
	// SetExact jumps to Target without following the incremental table.
	SetExact
	// StepArm walks the command ladder Disarmed -> DriveOnly ->
	// WeaponOnly -> FullyArmed one level, independent of axis.
	StepArm
	// StepDisarm walks the same ladder one level down.
	StepDisarm
)

// Source tags where a request came from. It decides priority when several
// requests are pending in the same window, never the transition itself.
type Source int

const (
	// SourceFailsafe requests come from the failsafe supervisor and only
	// ever de-escalate.
	SourceFailsafe Source = iota
	// SourceCommand requests come from an explicit operator command.
	SourceCommand
	// SourceSwitch requests come from the automatic arm-switch evaluator.
	SourceSwitch
)

// Request asks the machine for one transition.
type Request struct {
	Kind   Kind
	Axis   Axis  // Promote, Demote
	Target State // SetExact
	Source Source
}

// Result is the reply to a single Request.
type Result struct {
	State State
	Err   error
}

type pending struct {
	req  Request
	done chan Result
}

// Machine is the sole owner and sole mutator of the arming state. All
// requests funnel through one actor goroutine, so no two requests are ever
// evaluated against the same state snapshot. Readers get the current state
// through Current without touching the actor.
type Machine struct {
	reqCh chan pending

	mu    sync.RWMutex
	state State

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewMachine() *Machine {
	return &Machine{
		reqCh:  make(chan pending, 32),
		state:  Disarmed,
		stopCh: make(chan struct{}),
	}
}

// Current returns the arming state as of the last applied request.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) Start(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("arming: machine is nil")
	}
	go m.run(ctx)
	return nil
}

func (m *Machine) Close() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Submit enqueues a request and returns the channel its Result will be
// delivered on. Most callers want Apply instead.
func (m *Machine) Submit(req Request) <-chan Result {
	done := make(chan Result, 1)
	m.reqCh <- pending{req: req, done: done}
	return done
}

// Apply submits a request and waits for it to be applied. Safe to call
// concurrently from any task.
func (m *Machine) Apply(ctx context.Context, req Request) (State, error) {
	done := m.Submit(req)
	select {
	case res := <-done:
		return res.State, res.Err
	case <-ctx.Done():
		return m.Current(), ctx.Err()
	case <-m.stopCh:
		return m.Current(), fmt.Errorf("arming: machine stopped")
	}
}

func (m *Machine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case first := <-m.reqCh:
			m.process(m.drain(first))
		}
	}
}

// drain collects every request already queued so one wakeup sees the whole
// evaluation window.
func (m *Machine) drain(first pending) []pending {
	batch := []pending{first}
	for {
		select {
		case p := <-m.reqCh:
			batch = append(batch, p)
		default:
			return batch
		}
	}
}

// process applies a window of requests in priority order: de-escalation
// first (failsafe must never be starved by a simultaneous arm attempt),
// then command-origin, then switch-origin. Arrival order is kept within
// each class.
func (m *Machine) process(batch []pending) {
	ordered := make([]pending, 0, len(batch))
	for class := 0; class < 3; class++ {
		for _, p := range batch {
			if priorityClass(p.req) == class {
				ordered = append(ordered, p)
			}
		}
	}

	for _, p := range ordered {
		m.mu.Lock()
		next, err := transition(m.state, p.req)
		if err == nil && next != m.state {
			log.Printf("arming: state change: %s --> %s", m.state, next)
			m.state = next
		}
		cur := m.state
		m.mu.Unlock()
		p.done <- Result{State: cur, Err: err}
	}
}

func priorityClass(req Request) int {
	switch req.Kind {
	case Demote, Disarm, StepDisarm:
		return 0
	case SetExact:
		if req.Target == Disarmed {
			return 0
		}
	}
	if req.Source == SourceCommand {
		return 1
	}
	return 2
}

// transition is the total transition table. It never fails on "invalid
// state"; the only errors are the benign already-armed/disarmed no-ops.
func transition(cur State, req Request) (State, error) {
	switch req.Kind {
	case Disarm:
		if cur == Disarmed {
			return cur, ErrAlreadyDisarmed
		}
		return Disarmed, nil

	case SetExact:
		if req.Target == cur {
			if cur == Disarmed {
				return cur, ErrAlreadyDisarmed
			}
			return cur, ErrAlreadyArmed
		}
		return req.Target, nil

	case Promote:
		switch cur {
		case Disarmed:
			if req.Axis == AxisDrive {
				return DriveOnly, nil
			}
			return WeaponOnly, nil
		case DriveOnly, WeaponOnly:
			return FullyArmed, nil
		default: // FullyArmed
			return cur, ErrAlreadyArmed
		}

	case Demote:
		switch cur {
		case FullyArmed:
			if req.Axis == AxisDrive {
				return WeaponOnly, nil
			}
			return DriveOnly, nil
		case DriveOnly:
			if req.Axis == AxisDrive {
				return Disarmed, nil
			}
			return cur, nil
		case WeaponOnly:
			if req.Axis == AxisWeapon {
				return Disarmed, nil
			}
			return cur, nil
		default: // Disarmed
			return cur, nil
		}

	case StepArm:
		switch cur {
		case Disarmed:
			return DriveOnly, nil
		case DriveOnly:
			return WeaponOnly, nil
		case WeaponOnly:
			return FullyArmed, nil
		default:
			return cur, ErrAlreadyArmed
		}

	case StepDisarm:
		switch cur {
		case FullyArmed:
			return WeaponOnly, nil
		case WeaponOnly:
			return DriveOnly, nil
		case DriveOnly:
			return Disarmed, nil
		default:
			return cur, ErrAlreadyDisarmed
		}
	}
	return cur, nil
}

package leds

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
)

func TestPattern_Static(t *testing.T) {
	cases := []struct {
		state arming.State
		want  [NumLEDs]bool
	}{
		{arming.Disarmed, [NumLEDs]bool{false, false, false, false}},
		{arming.DriveOnly, [NumLEDs]bool{true, true, false, false}},
		{arming.FullyArmed, [NumLEDs]bool{true, true, true, true}},
	}
	for _, tc := range cases {
		// Static patterns ignore the tick.
		for _, tick := range []int{0, 1, 7} {
			if got := Pattern(tc.state, tick); got != tc.want {
				t.Errorf("Pattern(%s, %d) = %v, want %v", tc.state, tick, got, tc.want)
			}
		}
	}
}

func TestPattern_WeaponOnlyRipple(t *testing.T) {
	for tick := 0; tick < 8; tick++ {
		got := Pattern(arming.WeaponOnly, tick)
		lit := -1
		for i, on := range got {
			if on {
				if lit != -1 {
					t.Fatalf("tick %d: more than one LED lit: %v", tick, got)
				}
				lit = i
			}
		}
		if lit != tick%NumLEDs {
			t.Errorf("tick %d: lit LED %d, want %d", tick, lit, tick%NumLEDs)
		}
	}
}

type fakeDriver struct {
	mu   sync.Mutex
	sets [][NumLEDs]bool
}

func (f *fakeDriver) Set(v [NumLEDs]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, v)
	return nil
}

func (f *fakeDriver) Close() error { return nil }

func (f *fakeDriver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

func (f *fakeDriver) last() [NumLEDs]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sets) == 0 {
		return [NumLEDs]bool{}
	}
	return f.sets[len(f.sets)-1]
}

type fixedArm struct {
	state arming.State
}

func (f *fixedArm) Current() arming.State { return f.state }

func TestService_RendersState(t *testing.T) {
	drv := &fakeDriver{}
	svc := New(Config{Enable: true, Period: 5 * time.Millisecond}, &fixedArm{state: arming.FullyArmed}, drv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Close()

	deadline := time.After(2 * time.Second)
	for drv.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("driver never written")
		case <-time.After(time.Millisecond):
		}
	}
	if got := drv.last(); got != [NumLEDs]bool{true, true, true, true} {
		t.Fatalf("bank=%v want all on", got)
	}
}

func TestService_WeaponOnlyKeepsRippling(t *testing.T) {
	drv := &fakeDriver{}
	svc := New(Config{Enable: true, Period: time.Millisecond}, &fixedArm{state: arming.WeaponOnly}, drv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Close()

	// The ripple changes the bank every tick, so writes keep coming even
	// though the state is constant.
	deadline := time.After(2 * time.Second)
	for drv.count() < 5 {
		select {
		case <-deadline:
			t.Fatal("ripple stalled")
		case <-time.After(time.Millisecond):
		}
	}
}

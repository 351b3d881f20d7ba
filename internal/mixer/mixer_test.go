package mixer

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMix_CenteredSticksAreNeutral(t *testing.T) {
	d := Mix(50, 50, 50)
	if !almost(d.Wheel1, 50) || !almost(d.Wheel2, 50) || !almost(d.Wheel3, 50) {
		t.Fatalf("centered sticks: %+v want all 50", d)
	}
}

func TestMix_DeadzoneForcesNeutral(t *testing.T) {
	// Magnitude 4 < deadzone 5: translation discarded.
	d := Mix(54, 50, 50)
	if !almost(d.Wheel1, 50) || !almost(d.Wheel2, 50) || !almost(d.Wheel3, 50) {
		t.Fatalf("inside deadzone: %+v want all 50", d)
	}
}

func TestMix_FullAileronProjection(t *testing.T) {
	// x=50, y=0: pure sideways translation. Projections are
	// w0=-50, w1=25, w2=25, remapped from [-70,70] and recentered.
	d := Mix(100, 50, 50)

	want1 := 50 + ((-50.0+70)/140*100 - 50) // 100/7
	want2 := 50 + ((25.0+70)/140*100 - 50)  // 475/7
	if !almost(d.Wheel1, want1) {
		t.Errorf("Wheel1=%v want %v", d.Wheel1, want1)
	}
	if !almost(d.Wheel2, want2) || !almost(d.Wheel3, want2) {
		t.Errorf("Wheel2,3=%v,%v want %v", d.Wheel2, d.Wheel3, want2)
	}
}

func TestMix_ForwardElevationSplitsRearWheels(t *testing.T) {
	// x=0, y=50: pure forward. Wheel1 faces -x and contributes nothing;
	// the other two oppose each other.
	d := Mix(50, 100, 50)
	if !almost(d.Wheel1, 50) {
		t.Errorf("Wheel1=%v want 50", d.Wheel1)
	}
	if !almost(d.Wheel2+d.Wheel3, 100) {
		t.Errorf("Wheel2+Wheel3=%v want symmetric about 50", d.Wheel2+d.Wheel3)
	}
	if d.Wheel2 >= 50 || d.Wheel3 <= 50 {
		t.Errorf("forward: Wheel2=%v Wheel3=%v want opposite signs", d.Wheel2, d.Wheel3)
	}
}

func TestMix_RotationAppliesInsideDeadzone(t *testing.T) {
	d := Mix(50, 50, 80)
	if !almost(d.Wheel1, 80) || !almost(d.Wheel2, 80) || !almost(d.Wheel3, 80) {
		t.Fatalf("pure rotation: %+v want all 80", d)
	}
}

func TestMix_OutputsClamped(t *testing.T) {
	// Full translation plus full rotation drives past the range.
	d := Mix(100, 50, 100)
	for i, w := range []float64{d.Wheel1, d.Wheel2, d.Wheel3} {
		if w < 0 || w > 100 {
			t.Errorf("wheel %d=%v outside [0,100]", i+1, w)
		}
	}
	if !almost(d.Wheel2, 100) || !almost(d.Wheel3, 100) {
		t.Errorf("saturated wheels: %+v want clamp at 100", d)
	}
}

func TestWeaponThrottle_PassThrough(t *testing.T) {
	w := WeaponThrottle(73)
	if !almost(w.Motor1, 73) || !almost(w.Motor2, 73) || !almost(w.Motor3, 73) {
		t.Fatalf("%+v want all 73", w)
	}
	if w := WeaponThrottle(130); !almost(w.Motor1, 100) {
		t.Fatalf("overrange throttle: %+v want clamp at 100", w)
	}
}

// Package mixer converts normalized stick values into wheel and weapon
// throttle commands. All values are on the 0-100 scale with 50 neutral.
package mixer

import "math"

// Stick deflection magnitude below which translation input is ignored.
const deadzone = 5.0

var sqrt3o2 = math.Sqrt(3) / 2

// Drive holds one throttle command per omni wheel. The wheels are mounted
// 120 degrees apart; wheel 1 faces the -x axis.
type Drive struct {
	Wheel1 float64
	Wheel2 float64
	Wheel3 float64
}

// Weapon holds the throttle commands for the three weapon motors.
type Weapon struct {
	Motor1 float64
	Motor2 float64
	Motor3 float64
}

// Mix computes the three wheel speeds for one evaluation cycle from the
// aileron (x), elevation (y) and rudder (rotation) channels.
//
// The translation vector is decomposed with atan2 and projected onto the
// three wheel axes; each projection lands in [-70,70] and is remapped onto
// the output scale as a signed delta from neutral. Rotation is added
// uniformly afterwards, inside or outside the deadzone alike.
func Mix(aileron, elevation, rudder float64) Drive {
	x := aileron - 50
	y := elevation - 50

	theta := math.Atan2(x, y)
	magnitude := math.Sqrt(x*x + y*y)

	w1, w2, w3 := 50.0, 50.0, 50.0
	if magnitude > deadzone {
		vx := magnitude * math.Sin(theta)
		vy := magnitude * math.Cos(theta)

		w0 := -vx
		wa := 0.5*vx - sqrt3o2*vy
		wb := 0.5*vx + sqrt3o2*vy

		w1 += remap(w0, -70, 70, 0, 100) - 50
		w2 += remap(wa, -70, 70, 0, 100) - 50
		w3 += remap(wb, -70, 70, 0, 100) - 50
	}

	rot := rudder - 50
	w1 += rot
	w2 += rot
	w3 += rot

	return Drive{
		Wheel1: clamp(w1, 0, 100),
		Wheel2: clamp(w2, 0, 100),
		Wheel3: clamp(w3, 0, 100),
	}
}

// WeaponThrottle mirrors the weapon throttle channel to all three motors.
// No deadzone, no mixing; arming gates whether it reaches the ESCs.
func WeaponThrottle(throttle float64) Weapon {
	v := clamp(throttle, 0, 100)
	return Weapon{Motor1: v, Motor2: v, Motor3: v}
}

func remap(v, inLo, inHi, outLo, outHi float64) float64 {
	return (v-inLo)/(inHi-inLo)*(outHi-outLo) + outLo
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

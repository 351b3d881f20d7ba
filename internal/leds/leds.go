// Package leds renders the arming state onto the four status LEDs so the
// pit crew can read the robot's state from across the arena.
package leds

import (
	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
)

// NumLEDs is the size of the status bank.
const NumLEDs = 4

// Pattern returns the LED bank for a state at a given 100 ms tick.
// Disarmed shows nothing, DriveOnly the lower pair, FullyArmed the whole
// bank. WeaponOnly is the attention-grabbing one: a single lit LED
// rippling along the bank, advancing one position per tick.
func Pattern(state arming.State, tick int) [NumLEDs]bool {
	switch state {
	case arming.DriveOnly:
		return [NumLEDs]bool{true, true, false, false}
	case arming.WeaponOnly:
		var p [NumLEDs]bool
		pos := tick % NumLEDs
		if pos < 0 {
			pos += NumLEDs
		}
		p[pos] = true
		return p
	case arming.FullyArmed:
		return [NumLEDs]bool{true, true, true, true}
	default:
		return [NumLEDs]bool{}
	}
}

// Driver drives the physical LED bank.
type Driver interface {
	Set(values [NumLEDs]bool) error
	Close() error
}

// Noop is the driver used when LEDs are disabled or unavailable.
type Noop struct{}

func (Noop) Set([NumLEDs]bool) error { return nil }
func (Noop) Close() error            { return nil }

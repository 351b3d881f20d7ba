package receiver

// Two radio transmitters control the robot: one for the weapon, one for
// the drivetrain. Each receiver exposes six pulse-width channels.
const (
	NumControllers = 2
	NumChannels    = 6

	ControllerWeapon = 0
	ControllerDrive  = 1
)

// ChannelMap names the role of each channel index on one controller.
type ChannelMap struct {
	Throttle  int `yaml:"throttle"`
	Elevation int `yaml:"elevation"`
	Rudder    int `yaml:"rudder"`
	Aileron   int `yaml:"aileron"`
	ArmSwitch int `yaml:"arm_switch"`

	// Liveness lists the channel indices whose signal must keep moving
	// for the controller to count as alive. Defaults to the four stick
	// channels; switches sit still and must not trip stall detection.
	Liveness []int `yaml:"liveness"`
}

// DefaultChannelMap matches the wiring used on the robot's receivers.
func DefaultChannelMap() ChannelMap {
	return ChannelMap{
		Throttle:  0,
		Elevation: 1,
		Rudder:    2,
		Aileron:   3,
		ArmSwitch: 4,
		Liveness:  []int{0, 1, 2, 3},
	}
}

// Source supplies raw pulse widths, in microseconds, per controller and
// channel. Implementations must be safe for concurrent reads.
type Source interface {
	Pulsewidth(controller, channel int) float64
}

// NeutralSource reports a centered 1500 us pulse on every channel. Used on
// the bench when no receiver hardware is wired up.
type NeutralSource struct{}

func (NeutralSource) Pulsewidth(controller, channel int) float64 { return 1500 }

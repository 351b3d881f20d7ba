package arming

// State is the robot's arming level. Drive and weapon arm independently,
// so DriveOnly and WeaponOnly sit between Disarmed and FullyArmed without
// being ordered against each other.
type State int

const (
	Disarmed State = iota
	DriveOnly
	WeaponOnly
	FullyArmed
)

func (s State) String() string {
	switch s {
	case Disarmed:
		return "DISARMED"
	case DriveOnly:
		return "DRIVE_ONLY"
	case WeaponOnly:
		return "WEAPON_ONLY"
	case FullyArmed:
		return "FULLY_ARMED"
	default:
		return "UNKNOWN"
	}
}

// Axis selects one of the two arming domains.
type Axis int

const (
	AxisDrive Axis = iota
	AxisWeapon
)

func (a Axis) String() string {
	switch a {
	case AxisDrive:
		return "drive"
	case AxisWeapon:
		return "weapon"
	default:
		return "unknown"
	}
}

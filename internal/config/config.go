// Package config loads the robot's YAML configuration file and applies
// defaults so a minimal file is enough to get a bench setup running.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TeamTriforceUK/triforce-robot/internal/receiver"
)

type Config struct {
	Receiver    ReceiverConfig    `yaml:"receiver"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Failsafe    FailsafeConfig    `yaml:"failsafe"`
	Intent      IntentConfig      `yaml:"intent"`
	ESC         ESCConfig         `yaml:"esc"`
	Console     ConsoleConfig     `yaml:"console"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	LEDs        LEDConfig         `yaml:"leds"`
	Orientation OrientationConfig `yaml:"orientation"`
}

type ReceiverConfig struct {
	Poll         time.Duration `yaml:"poll"`
	StallTimeout time.Duration `yaml:"stall_timeout"`

	// GPIOChip names the character device carrying the receiver pins,
	// e.g. "gpiochip0". Empty means no hardware: every channel reads a
	// neutral pulse, for bench work.
	GPIOChip string  `yaml:"gpio_chip"`
	Pins     [][]int `yaml:"pins"` // [controller][channel] line offsets, -1 = unconnected

	Weapon receiver.ChannelMap `yaml:"weapon"`
	Drive  receiver.ChannelMap `yaml:"drive"`
}

type CalibrationConfig struct {
	// RunAtBoot starts the one-shot calibration pass right after startup.
	RunAtBoot bool          `yaml:"run_at_boot"`
	Duration  time.Duration `yaml:"duration"`
	Interval  time.Duration `yaml:"interval"`
}

type FailsafeConfig struct {
	Period time.Duration `yaml:"period"`
}

type IntentConfig struct {
	Period         time.Duration `yaml:"period"`
	SwitchMidpoint float64       `yaml:"switch_midpoint"`
}

type ESCConfig struct {
	Enable bool          `yaml:"enable"`
	Period time.Duration `yaml:"period"`
	// Chip is the sysfs PWM chip, e.g. "pwmchip0".
	Chip           string `yaml:"chip"`
	DriveChannels  []int  `yaml:"drive_channels"`
	WeaponChannels []int  `yaml:"weapon_channels"`
}

type ConsoleConfig struct {
	Enable bool   `yaml:"enable"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type TelemetryConfig struct {
	Enable bool `yaml:"enable"`
	// Sink is "serial" (the ESP link) or "udp".
	Sink   string        `yaml:"sink"`
	Device string        `yaml:"device"`
	Baud   int           `yaml:"baud"`
	Dest   string        `yaml:"dest"`
	Period time.Duration `yaml:"period"`
}

type LEDConfig struct {
	Enable bool          `yaml:"enable"`
	Chip   string        `yaml:"chip"`
	Lines  []int         `yaml:"lines"`
	Period time.Duration `yaml:"period"`
}

type OrientationConfig struct {
	Enable bool          `yaml:"enable"`
	I2CBus int           `yaml:"i2c_bus"`
	Addr   int           `yaml:"addr"`
	Period time.Duration `yaml:"period"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Receiver.Poll <= 0 {
		cfg.Receiver.Poll = 20 * time.Millisecond
	}
	if cfg.Receiver.StallTimeout <= 0 {
		cfg.Receiver.StallTimeout = 500 * time.Millisecond
	}
	if len(cfg.Receiver.Weapon.Liveness) == 0 {
		cfg.Receiver.Weapon = receiver.DefaultChannelMap()
	}
	if len(cfg.Receiver.Drive.Liveness) == 0 {
		cfg.Receiver.Drive = receiver.DefaultChannelMap()
	}
	if err := validateMap("receiver.weapon", cfg.Receiver.Weapon); err != nil {
		return Config{}, err
	}
	if err := validateMap("receiver.drive", cfg.Receiver.Drive); err != nil {
		return Config{}, err
	}

	if cfg.Receiver.GPIOChip != "" {
		if len(cfg.Receiver.Pins) != receiver.NumControllers {
			return Config{}, fmt.Errorf("receiver.pins must list %d controllers when receiver.gpio_chip is set", receiver.NumControllers)
		}
		for c, row := range cfg.Receiver.Pins {
			if len(row) != receiver.NumChannels {
				return Config{}, fmt.Errorf("receiver.pins[%d] must list %d channels", c, receiver.NumChannels)
			}
		}
	}

	if cfg.Calibration.Duration <= 0 {
		cfg.Calibration.Duration = 10 * time.Second
	}
	if cfg.Calibration.Interval <= 0 {
		cfg.Calibration.Interval = 100 * time.Millisecond
	}

	if cfg.Failsafe.Period <= 0 {
		cfg.Failsafe.Period = 100 * time.Millisecond
	}

	if cfg.Intent.Period <= 0 {
		cfg.Intent.Period = 1 * time.Second
	}
	if cfg.Intent.SwitchMidpoint <= 0 {
		cfg.Intent.SwitchMidpoint = 50
	}

	if cfg.ESC.Period <= 0 {
		cfg.ESC.Period = 20 * time.Millisecond
	}
	if cfg.ESC.Enable {
		if cfg.ESC.Chip == "" {
			return Config{}, fmt.Errorf("esc.chip is required when esc.enable is true")
		}
		if len(cfg.ESC.DriveChannels) != 3 {
			return Config{}, fmt.Errorf("esc.drive_channels must list 3 channels")
		}
		if len(cfg.ESC.WeaponChannels) != 3 {
			return Config{}, fmt.Errorf("esc.weapon_channels must list 3 channels")
		}
	}

	if cfg.Console.Enable && cfg.Console.Device == "" {
		return Config{}, fmt.Errorf("console.device is required when console.enable is true")
	}
	if cfg.Console.Baud <= 0 {
		cfg.Console.Baud = 115200
	}

	if cfg.Telemetry.Sink == "" {
		cfg.Telemetry.Sink = "serial"
	}
	if cfg.Telemetry.Period <= 0 {
		cfg.Telemetry.Period = 1 * time.Second
	}
	if cfg.Telemetry.Baud <= 0 {
		cfg.Telemetry.Baud = 115200
	}
	if cfg.Telemetry.Enable {
		switch cfg.Telemetry.Sink {
		case "serial":
			if cfg.Telemetry.Device == "" {
				return Config{}, fmt.Errorf("telemetry.device is required for the serial sink")
			}
		case "udp":
			if cfg.Telemetry.Dest == "" {
				return Config{}, fmt.Errorf("telemetry.dest is required for the udp sink")
			}
		default:
			return Config{}, fmt.Errorf("telemetry.sink must be %q or %q", "serial", "udp")
		}
	}

	if cfg.LEDs.Period <= 0 {
		cfg.LEDs.Period = 100 * time.Millisecond
	}
	if cfg.LEDs.Enable && len(cfg.LEDs.Lines) != 4 {
		return Config{}, fmt.Errorf("leds.lines must list 4 line offsets")
	}

	if cfg.Orientation.I2CBus <= 0 {
		cfg.Orientation.I2CBus = 1
	}
	if cfg.Orientation.Period <= 0 {
		cfg.Orientation.Period = 50 * time.Millisecond
	}

	return cfg, nil
}

func validateMap(name string, m receiver.ChannelMap) error {
	for _, ch := range []int{m.Throttle, m.Elevation, m.Rudder, m.Aileron, m.ArmSwitch} {
		if ch < 0 || ch >= receiver.NumChannels {
			return fmt.Errorf("%s: channel index %d out of range", name, ch)
		}
	}
	for _, ch := range m.Liveness {
		if ch < 0 || ch >= receiver.NumChannels {
			return fmt.Errorf("%s: liveness channel %d out of range", name, ch)
		}
	}
	return nil
}

// PinArray converts the YAML pin rows into the fixed-size array the receiver
// source wants, marking anything unspecified as unconnected.
func (r ReceiverConfig) PinArray() [receiver.NumControllers][receiver.NumChannels]int {
	var pins [receiver.NumControllers][receiver.NumChannels]int
	for c := range pins {
		for ch := range pins[c] {
			pins[c][ch] = -1
			if c < len(r.Pins) && ch < len(r.Pins[c]) {
				pins[c][ch] = r.Pins[c][ch]
			}
		}
	}
	return pins
}

//go:build linux

package leds

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOBank drives the status LEDs through the Linux GPIO character
// device, one requested output line per LED.
type GPIOBank struct {
	chip  *gpiocdev.Chip
	lines [NumLEDs]*gpiocdev.Line
}

// OpenGPIOBank requests the four configured line offsets as outputs,
// initially off.
func OpenGPIOBank(chipPath string, offsets [NumLEDs]int) (*GPIOBank, error) {
	if chipPath == "" {
		chipPath = "/dev/gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("leds: open %s: %w", chipPath, err)
	}

	b := &GPIOBank{chip: chip}
	for i, off := range offsets {
		line, err := chip.RequestLine(off, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("triforce-leds"))
		if err != nil {
			b.release()
			return nil, fmt.Errorf("leds: request line %d: %w", off, err)
		}
		b.lines[i] = line
	}
	return b, nil
}

func (b *GPIOBank) Set(values [NumLEDs]bool) error {
	for i, line := range b.lines {
		if line == nil {
			continue
		}
		v := 0
		if values[i] {
			v = 1
		}
		if err := line.SetValue(v); err != nil {
			return fmt.Errorf("leds: set led %d: %w", i, err)
		}
	}
	return nil
}

func (b *GPIOBank) Close() error {
	if b == nil {
		return nil
	}
	b.release()
	return nil
}

func (b *GPIOBank) release() {
	for i, line := range b.lines {
		if line != nil {
			_ = line.SetValue(0)
			_ = line.Close()
			b.lines[i] = nil
		}
	}
	if b.chip != nil {
		_ = b.chip.Close()
		b.chip = nil
	}
}
